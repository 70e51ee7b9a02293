package settings

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

const (
	// FileName is the name of the settings file inside a plugin's settings directory.
	FileName = "settings.xml"
	// BackupSuffix is appended to the settings path to name the backup copy.
	BackupSuffix = "_bak"

	// DefaultReadRetryDelay is the pause before the single retry of a locked read.
	DefaultReadRetryDelay = 50 * time.Millisecond
	// DefaultWriteRetryDelay is the pause between attempts to copy a new file into place.
	DefaultWriteRetryDelay = 50 * time.Millisecond

	copyAttempts = 5
	pruneLevels  = 2
)

// Store holds the plugin-level and per-command settings of one scope, cached
// from the file at Path.
//
// Settings are read lazily on first access and written only by WriteSettings.
// A Store does no locking; ReadSettings and WriteSettings must not run
// concurrently with each other or with dictionary access. Writes from two
// processes are not coordinated and the last successful copy wins.
type Store struct {
	scope Scope
	path  string

	fs              fileSystem
	log             *slog.Logger
	readRetryDelay  time.Duration
	writeRetryDelay time.Duration

	loaded   bool
	plugin   *Dictionary
	commands *Commands

	// digests of the bytes last read from or written to path, and of the
	// bytes a write in progress is copying there
	seenMu  sync.Mutex
	seen    [sha256.Size]byte
	pending [sha256.Size]byte
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for I/O diagnostics.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRetryDelays overrides the pauses used when a file is locked.
func WithRetryDelays(read, write time.Duration) StoreOption {
	return func(s *Store) {
		s.readRetryDelay = read
		s.writeRetryDelay = write
	}
}

func withFileSystem(fsys fileSystem) StoreOption {
	return func(s *Store) {
		s.fs = fsys
	}
}

// NewStore returns a Store bound to the settings file at path.
func NewStore(path string, scope Scope, opts ...StoreOption) *Store {
	s := &Store{
		scope:           scope,
		path:            path,
		fs:              osFS{},
		log:             slog.Default(),
		readRetryDelay:  DefaultReadRetryDelay,
		writeRetryDelay: DefaultWriteRetryDelay,
		plugin:          NewDictionary(),
		commands:        NewCommands(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Scope returns the scope this store persists.
func (s *Store) Scope() Scope { return s.scope }

// Plugin returns the plugin-level settings, reading the file on first use.
func (s *Store) Plugin() *Dictionary {
	s.ensureLoaded()
	return s.plugin
}

// Command returns the settings of the named command, reading the file on first use.
func (s *Store) Command(name string) *Dictionary {
	s.ensureLoaded()
	return s.commands.Get(name)
}

// Commands returns the command registry, reading the file on first use.
func (s *Store) Commands() *Commands {
	s.ensureLoaded()
	return s.commands
}

// ContainsModifiedValues reports whether the plugin dictionary or any command
// dictionary has an entry that differs from its default.
func (s *Store) ContainsModifiedValues() bool {
	s.ensureLoaded()
	return s.plugin.ContainsModifiedValues() || s.commands.ContainsModifiedValues()
}

func (s *Store) ensureLoaded() {
	if !s.loaded {
		s.ReadSettings()
	}
}

// ReadSettings replaces the cached settings with the contents of the file.
// It returns false, leaving the cache as it was, when the file is missing,
// stays locked after one retry, is not a supported settings document, or
// cannot be parsed. Failures are logged, never returned.
func (s *Store) ReadSettings() (ok bool) {
	s.loaded = true
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered while reading settings", "path", s.path, "scope", s.scope.String(), "panic", r)
			readsTotal.WithLabelValues(s.scope.String(), "error").Inc()
			ok = false
		}
	}()

	data, ok := s.readFile()
	if !ok {
		return false
	}

	plugin, commands, err := DecodeDocument(bytes.NewReader(data))
	if err != nil {
		result := "corrupt"
		if errors.Is(err, ErrUnsupportedFormat) {
			result = "unsupported"
		}
		s.log.Warn("Ignoring unreadable settings file",
			"path", s.path,
			"scope", s.scope.String(),
			"error", err)
		readsTotal.WithLabelValues(s.scope.String(), result).Inc()
		return false
	}

	s.plugin, s.commands = plugin, commands
	s.remember(data)
	readsTotal.WithLabelValues(s.scope.String(), "loaded").Inc()
	s.log.Debug("Loaded settings", "path", s.path, "scope", s.scope.String())
	return true
}

func (s *Store) readFile() ([]byte, bool) {
	if _, err := s.fs.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			readsTotal.WithLabelValues(s.scope.String(), "missing").Inc()
		} else {
			s.log.Warn("Cannot stat settings file", "path", s.path, "error", err)
			readsTotal.WithLabelValues(s.scope.String(), "error").Inc()
		}
		return nil, false
	}

	for attempt := 0; ; attempt++ {
		data, err := s.fs.ReadFile(s.path)
		if err == nil {
			return data, true
		}
		if isLockError(err) {
			if attempt == 0 {
				ioRetriesTotal.WithLabelValues("read").Inc()
				time.Sleep(s.readRetryDelay)
				continue
			}
			s.log.Warn("Settings file is locked by another process", "path", s.path, "error", err)
			readsTotal.WithLabelValues(s.scope.String(), "locked").Inc()
			return nil, false
		}
		s.log.Warn("Cannot read settings file", "path", s.path, "error", err)
		readsTotal.WithLabelValues(s.scope.String(), "error").Inc()
		return nil, false
	}
}

// WriteSettings persists every modified entry.
//
// When nothing is modified the file is deleted, along with up to two levels of
// now-empty parent directories, and false is returned. Otherwise the document
// is written to a temporary file next to the target, the existing file is kept
// as Path()+BackupSuffix, and the temporary file is copied over the target.
// The result reports whether that copy succeeded. The cached settings are
// never altered, so a failed write can be retried.
func (s *Store) WriteSettings() bool {
	s.ensureLoaded()
	scope := s.scope.String()

	if !s.ContainsModifiedValues() {
		if s.removeFile() {
			writesTotal.WithLabelValues(scope, "deleted").Inc()
		} else {
			writesTotal.WithLabelValues(scope, "unchanged").Inc()
		}
		return false
	}

	data, err := EncodeDocument(s.plugin, s.commands)
	if err != nil {
		s.log.Warn("Cannot encode settings", "path", s.path, "error", err)
		writesTotal.WithLabelValues(scope, "failed").Inc()
		return false
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir); err != nil {
		s.log.Warn("Cannot create settings directory", "dir", dir, "error", err)
		writesTotal.WithLabelValues(scope, "failed").Inc()
		return false
	}

	tmp, err := s.fs.WriteTemp(dir, data)
	if err != nil {
		s.log.Warn("Cannot write temporary settings file", "dir", dir, "error", err)
		writesTotal.WithLabelValues(scope, "failed").Inc()
		return false
	}
	defer func() {
		if err := s.fs.Remove(tmp); err != nil {
			s.log.Debug("Cannot remove temporary settings file", "path", tmp, "error", err)
		}
	}()

	if _, err := s.fs.Stat(s.path); err == nil {
		s.backup()
	}

	// Watch events for the copy can arrive before it completes.
	s.setPending(data)
	if !s.copyIntoPlace(tmp) {
		s.setPending(nil)
		writesTotal.WithLabelValues(scope, "failed").Inc()
		return false
	}
	s.remember(data)
	writesTotal.WithLabelValues(scope, "written").Inc()
	s.log.Debug("Saved settings", "path", s.path, "scope", scope)
	return true
}

// backup moves the current file to the backup name. Failures are ignored.
func (s *Store) backup() {
	bak := s.path + BackupSuffix
	if _, err := s.fs.Stat(bak); err == nil {
		if err := s.fs.Remove(bak); err != nil {
			s.log.Debug("Cannot remove old settings backup", "path", bak, "error", err)
			return
		}
	}
	if err := s.fs.Rename(s.path, bak); err != nil {
		s.log.Debug("Cannot back up settings file", "path", s.path, "error", err)
	}
}

func (s *Store) copyIntoPlace(tmp string) bool {
	var err error
	for attempt := 1; attempt <= copyAttempts; attempt++ {
		if err = s.fs.Copy(tmp, s.path); err == nil {
			return true
		}
		if attempt < copyAttempts {
			ioRetriesTotal.WithLabelValues("write").Inc()
			time.Sleep(s.writeRetryDelay)
		}
	}
	s.log.Warn("Cannot replace settings file",
		"path", s.path,
		"attempts", copyAttempts,
		"error", err)
	return false
}

// removeFile deletes the settings file and prunes empty parent directories.
// It reports whether a file was deleted. Every failure is ignored.
func (s *Store) removeFile() bool {
	if _, err := s.fs.Stat(s.path); err != nil {
		return false
	}
	if err := s.fs.Remove(s.path); err != nil {
		s.log.Debug("Cannot delete settings file", "path", s.path, "error", err)
		return false
	}
	s.remember(nil)

	dir := filepath.Dir(s.path)
	for i := 0; i < pruneLevels; i++ {
		if !s.fs.IsEmptyDir(dir) {
			break
		}
		if err := s.fs.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return true
}

// remember records data as the file's known content and ends any pending write.
func (s *Store) remember(data []byte) {
	sum := sha256.Sum256(data)
	s.seenMu.Lock()
	s.seen = sum
	s.pending = [sha256.Size]byte{}
	s.seenMu.Unlock()
}

// setPending marks data as being copied into place. Nil clears the mark.
func (s *Store) setPending(data []byte) {
	var sum [sha256.Size]byte
	if data != nil {
		sum = sha256.Sum256(data)
	}
	s.seenMu.Lock()
	s.pending = sum
	s.seenMu.Unlock()
}

// isOwnContent reports whether data is what this store last read or wrote,
// or what a write in progress is putting in place.
func (s *Store) isOwnContent(data []byte) bool {
	sum := sha256.Sum256(data)
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return sum == s.seen || sum == s.pending
}
