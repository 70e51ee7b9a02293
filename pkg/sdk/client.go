// Package sdk provides the client-side library for the Celerix settings daemon.
// It supports both remote connections via TCP/TLS and a local embedded mode.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-settings/pkg/schema"
	"github.com/celerix-dev/celerix-settings/pkg/settings"
)

const (
	maxAttempts = 3
	// pluginLevel is the wire token for the plugin-level dictionary.
	pluginLevel = "."
)

// Client is a remote client for the settings daemon.
// It implements the SettingsStore interface.
type Client struct {
	addr   string
	log    *slog.Logger
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// Connect establishes a TLS-encrypted connection to a remote settings daemon.
// If CELERIX_DISABLE_TLS is set to "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr, log: slog.Default()}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLogger replaces the logger used to report retries.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	var conn net.Conn
	var err error
	if os.Getenv("CELERIX_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // the daemon uses a self-signed certificate
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// sendAndReceive sends one request line and returns the reply without its
// "OK" prefix. Transport failures are retried; ERR replies are not.
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < maxAttempts; i++ {
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		var resp string
		if _, err = fmt.Fprint(c.conn, cmd+"\n"); err == nil {
			if resp, err = c.reader.ReadString('\n'); err == nil {
				return parseReply(strings.TrimSpace(resp))
			}
		}

		c.log.Warn("Settings daemon request failed, reconnecting",
			"addr", c.addr,
			"attempt", i+1,
			"error", err)
		if closeErr := c.reconnect(); closeErr != nil {
			c.log.Warn("Reconnect failed", "addr", c.addr, "error", closeErr)
		}
		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after %d attempts. last error: %w", maxAttempts, err)
}

func parseReply(resp string) (string, error) {
	switch {
	case resp == "OK" || resp == "PONG":
		return "", nil
	case strings.HasPrefix(resp, "OK "):
		return strings.TrimPrefix(resp, "OK "), nil
	case strings.HasPrefix(resp, "ERR "):
		return "", remoteError(strings.TrimPrefix(resp, "ERR "))
	}
	return "", fmt.Errorf("unexpected reply %q", resp)
}

// remoteError restores the sentinel a daemon error message starts with.
func remoteError(msg string) error {
	for _, sentinel := range []error{ErrPluginNotFound, ErrKeyNotFound, ErrVetoed, settings.ErrInvalidScope} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()); ok {
			return fmt.Errorf("%w%s", sentinel, rest)
		}
	}
	return errors.New(msg)
}

func (c *Client) request(out any, verb string, args ...string) error {
	for _, a := range args {
		if a == "" || strings.ContainsFunc(a, isSpace) {
			return fmt.Errorf("%w: %q", ErrInvalidToken, a)
		}
	}
	resp, err := c.sendAndReceive(strings.Join(append([]string{verb}, args...), " "))
	if err != nil || out == nil {
		return err
	}
	return json.Unmarshal([]byte(resp), out)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func commandToken(command string) string {
	if command == "" {
		return pluginLevel
	}
	return command
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	return c.request(nil, "PING")
}

func (c *Client) Plugins() ([]schema.Plugin, error) {
	var list []schema.Plugin
	err := c.request(&list, "LIST_PLUGINS")
	return list, err
}

func (c *Client) Commands(plugin string, scope settings.Scope) ([]string, error) {
	var list []string
	err := c.request(&list, "LIST_COMMANDS", plugin, scope.String())
	return list, err
}

func (c *Client) Get(plugin string, scope settings.Scope, command, key string) (settings.EntryView, error) {
	var e settings.EntryView
	err := c.request(&e, "GET", plugin, scope.String(), commandToken(command), key)
	return e, err
}

func (c *Client) Set(plugin string, scope settings.Scope, command, key, value string) error {
	return c.set("SET", plugin, scope, command, key, value)
}

func (c *Client) SetDefault(plugin string, scope settings.Scope, command, key, value string) error {
	return c.set("SETDEF", plugin, scope, command, key, value)
}

func (c *Client) set(verb, plugin string, scope settings.Scope, command, key, value string) error {
	quoted, err := json.Marshal(value)
	if err != nil {
		return err
	}
	for _, a := range []string{plugin, commandToken(command), key} {
		if a == "" || strings.ContainsFunc(a, isSpace) {
			return fmt.Errorf("%w: %q", ErrInvalidToken, a)
		}
	}
	_, err = c.sendAndReceive(fmt.Sprintf("%s %s %s %s %s %s", verb, plugin, scope, commandToken(command), key, quoted))
	return err
}

func (c *Client) Delete(plugin string, scope settings.Scope, command, key string) error {
	return c.request(nil, "DEL", plugin, scope.String(), commandToken(command), key)
}

func (c *Client) Dump(plugin string, scope settings.Scope, command string) ([]settings.EntryView, error) {
	var entries []settings.EntryView
	err := c.request(&entries, "DUMP", plugin, scope.String(), commandToken(command))
	return entries, err
}

func (c *Client) Write(plugin string) (bool, error) {
	var written bool
	err := c.request(&written, "WRITE", plugin)
	return written, err
}

func (c *Client) Modified(plugin string) (bool, error) {
	var modified bool
	err := c.request(&modified, "MODIFIED", plugin)
	return modified, err
}

// Migrate asks the daemon to copy modified values of plugin between scopes.
func (c *Client) Migrate(plugin string, from, to settings.Scope) (int, error) {
	var copied int
	err := c.request(&copied, "MIGRATE", plugin, from.String(), to.String())
	return copied, err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	err := c.conn.Close()
	c.conn = nil
	return err
}

// --- Generics Support ---

// Get retrieves the effective value of key parsed with c. It returns a
// *settings.TypeError when the stored text does not parse.
func Get[T any](s EntryReader, c settings.Codec[T], plugin string, scope settings.Scope, command, key string) (T, error) {
	e, err := s.Get(plugin, scope, command, key)
	if err != nil {
		return c.Sentinel(), err
	}
	raw := e.Value
	if raw == "" {
		raw = e.Default
	}
	v, ok := c.Parse(raw)
	if !ok {
		return v, &settings.TypeError{Key: key, Type: c.Name(), Value: raw}
	}
	return v, nil
}

// Set formats v with c and stores it as the current value of key.
func Set[T any](s EntryWriter, c settings.Codec[T], plugin string, scope settings.Scope, command, key string, v T) error {
	return s.Set(plugin, scope, command, key, c.Format(v))
}
