package settings

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ChangeEvent describes a pending write to one slot of an entry.
//
// A validator may only observe the change and cancel it. CurrentValue is
// writable for compatibility with older callers, but the value written is
// always the one proposed when the event was raised; edits to New or
// CurrentValue are ignored.
type ChangeEvent struct {
	Key     string
	Default bool
	Old     string
	New     string

	CurrentValue string

	cancelled bool
}

// Cancel vetoes the pending write.
func (e *ChangeEvent) Cancel() { e.cancelled = true }

// Cancelled reports whether Cancel has been called.
func (e *ChangeEvent) Cancelled() bool { return e.cancelled }

// Validator is invoked synchronously before a slot is written. It must not
// mutate the dictionary that invoked it.
type Validator func(*ChangeEvent)

// ValidatorFor adapts a typed predicate into a Validator. The change is
// cancelled when accept returns false or when New does not parse with c.
// An unparsable Old value is passed as the codec's sentinel.
func ValidatorFor[T any](c Codec[T], accept func(key string, old, new T) bool) Validator {
	return func(ev *ChangeEvent) {
		next, ok := c.Parse(ev.New)
		if !ok {
			ev.Cancel()
			return
		}
		prev, _ := c.Parse(ev.Old)
		if !accept(ev.Key, prev, next) {
			ev.Cancel()
		}
	}
}

// CompileRule compiles a boolean expr-lang expression into a Validator.
// The expression sees key, old, new (canonical strings) and isDefault.
// A false result or a runtime error cancels the change.
//
//	v, _ := settings.CompileRule(`float(new) >= 0 && float(new) <= 1`)
func CompileRule(expression string) (Validator, error) {
	if expression == "" {
		return nil, fmt.Errorf("settings: rule expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(ruleEnv{}),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("settings: compile rule %q: %w", expression, err)
	}
	return ruleValidator(program), nil
}

type ruleEnv struct {
	Key       string `expr:"key"`
	Old       string `expr:"old"`
	New       string `expr:"new"`
	IsDefault bool   `expr:"isDefault"`
}

func ruleValidator(program *exprvm.Program) Validator {
	return func(ev *ChangeEvent) {
		out, err := exprlang.Run(program, ruleEnv{
			Key:       ev.Key,
			Old:       ev.Old,
			New:       ev.New,
			IsDefault: ev.Default,
		})
		if err != nil {
			ev.Cancel()
			return
		}
		if ok, _ := out.(bool); !ok {
			ev.Cancel()
		}
	}
}
