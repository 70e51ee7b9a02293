// Package server exposes a SettingsStore over a line-oriented TCP protocol.
//
// Every request is one line of space-separated tokens and gets exactly one
// reply line: "OK", "OK <json>", "ERR <message>" or, for PING, "PONG".
// A command token of "." selects the plugin-level dictionary. Values sent with
// SET and SETDEF are JSON strings so they may contain spaces.
//
//	PING
//	LIST_PLUGINS
//	LIST_COMMANDS <plugin> <scope>
//	GET <plugin> <scope> <command> <key>
//	SET <plugin> <scope> <command> <key> <json string>
//	SETDEF <plugin> <scope> <command> <key> <json string>
//	DEL <plugin> <scope> <command> <key>
//	DUMP <plugin> <scope> <command>
//	WRITE <plugin>
//	MODIFIED <plugin>
//	MIGRATE <plugin> <from scope> <to scope>
//	QUIT
package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/celerix-dev/celerix-settings/internal/engine"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

// MaxConnections bounds the number of connections served at once.
const MaxConnections = 100

// PluginLevel is the command token that selects plugin-level settings.
const PluginLevel = "."

var (
	connDeadline = 5 * time.Minute
	idleTimeout  = 30 * time.Second
)

type Router struct {
	store engine.SettingsStore
	cert  *tls.Certificate
	log   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
}

func NewRouter(s engine.SettingsStore) *Router {
	return &Router{store: s, log: slog.Default()}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// SetLogger replaces the router's logger.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.log = l
	}
}

// Addr returns the listening address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		listener.Close()
		return nil
	}
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, MaxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.isStopped() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			r.log.Warn("Accept failed", "error", err)
			continue
		}

		// Bound the lifetime of every connection so idle clients cannot pin a slot.
		conn.SetDeadline(time.Now().Add(connDeadline))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

// Stop closes the listener. Connections already accepted finish on their own.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

func (r *Router) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))

		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Debug("Connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		verb, _, _ := strings.Cut(line, " ")
		if strings.EqualFold(verb, "QUIT") {
			return
		}
		fmt.Fprintln(conn, r.dispatch(line))
	}
}

// dispatch executes one request line and returns the reply line.
func (r *Router) dispatch(line string) string {
	fields := strings.Fields(line)
	verb := strings.ToUpper(fields[0])
	args := fields[1:]

	switch verb {
	case "PING":
		return "PONG"

	case "LIST_PLUGINS":
		return reply(r.store.Plugins())

	case "LIST_COMMANDS":
		if len(args) < 2 {
			return usage("LIST_COMMANDS <plugin> <scope>")
		}
		scope, err := settings.ParseScope(args[1])
		if err != nil {
			return fail(err)
		}
		return reply(r.store.Commands(args[0], scope))

	case "GET":
		if len(args) < 4 {
			return usage("GET <plugin> <scope> <command> <key>")
		}
		scope, err := settings.ParseScope(args[1])
		if err != nil {
			return fail(err)
		}
		return reply(r.store.Get(args[0], scope, commandArg(args[2]), args[3]))

	case "SET", "SETDEF":
		parts, raw, ok := splitArgs(line, 5)
		if !ok || raw == "" {
			return usage(verb + " <plugin> <scope> <command> <key> <json string>")
		}
		var value string
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return "ERR value must be a JSON string"
		}
		scope, err := settings.ParseScope(parts[2])
		if err != nil {
			return fail(err)
		}
		if verb == "SETDEF" {
			err = r.store.SetDefault(parts[1], scope, commandArg(parts[3]), parts[4], value)
		} else {
			err = r.store.Set(parts[1], scope, commandArg(parts[3]), parts[4], value)
		}
		return ack(err)

	case "DEL":
		if len(args) < 4 {
			return usage("DEL <plugin> <scope> <command> <key>")
		}
		scope, err := settings.ParseScope(args[1])
		if err != nil {
			return fail(err)
		}
		return ack(r.store.Delete(args[0], scope, commandArg(args[2]), args[3]))

	case "DUMP":
		if len(args) < 3 {
			return usage("DUMP <plugin> <scope> <command>")
		}
		scope, err := settings.ParseScope(args[1])
		if err != nil {
			return fail(err)
		}
		return reply(r.store.Dump(args[0], scope, commandArg(args[2])))

	case "WRITE":
		if len(args) < 1 {
			return usage("WRITE <plugin>")
		}
		return reply(r.store.Write(args[0]))

	case "MODIFIED":
		if len(args) < 1 {
			return usage("MODIFIED <plugin>")
		}
		return reply(r.store.Modified(args[0]))

	case "MIGRATE":
		if len(args) < 3 {
			return usage("MIGRATE <plugin> <from scope> <to scope>")
		}
		from, err := settings.ParseScope(args[1])
		if err != nil {
			return fail(err)
		}
		to, err := settings.ParseScope(args[2])
		if err != nil {
			return fail(err)
		}
		return reply(engine.Migrate(r.store, r.store, args[0], from, to))
	}

	return "ERR unknown command " + verb
}

func commandArg(token string) string {
	if token == PluginLevel {
		return engine.PluginCommand
	}
	return token
}

// splitArgs returns the first n whitespace-separated tokens of line and the
// untouched remainder.
func splitArgs(line string, n int) ([]string, string, bool) {
	args := make([]string, 0, n)
	rest := strings.TrimSpace(line)
	for len(args) < n {
		if rest == "" {
			return nil, "", false
		}
		i := strings.IndexFunc(rest, unicode.IsSpace)
		if i < 0 {
			args = append(args, rest)
			rest = ""
			continue
		}
		args = append(args, rest[:i])
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
	}
	return args, rest, true
}

func reply[T any](v T, err error) string {
	if err != nil {
		return fail(err)
	}
	res, err := json.Marshal(v)
	if err != nil {
		return "ERR internal error"
	}
	return "OK " + string(res)
}

func ack(err error) string {
	if err != nil {
		return fail(err)
	}
	return "OK"
}

func fail(err error) string {
	// Replies are single lines.
	return "ERR " + strings.ReplaceAll(err.Error(), "\n", " ")
}

func usage(form string) string {
	return "ERR usage: " + form
}
