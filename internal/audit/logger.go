// Package audit records every vault operation attempt as one JSON object per
// line in an append-only file. Audit failures never surface to callers: the
// logger disables itself instead.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/semmy-space/vlt/internal/vaulterr"
)

// Event names the kind of operation an Entry describes.
type Event string

const (
	VaultCreated      Event = "VAULT_CREATED"
	VaultDeleted      Event = "VAULT_DELETED"
	VaultList         Event = "VAULT_LIST"
	CredentialSet     Event = "CREDENTIAL_SET"
	CredentialGet     Event = "CREDENTIAL_GET"
	CredentialDeleted Event = "CREDENTIAL_DELETED"
	CredentialList    Event = "CREDENTIAL_LIST"
	MasterKeyCreated  Event = "MASTER_KEY_CREATED"
	MasterKeyDeleted  Event = "MASTER_KEY_DELETED"
	AccessDenied      Event = "ACCESS_DENIED"
	VaultError        Event = "VAULT_ERROR"
)

// Events lists every event kind.
var Events = []Event{
	VaultCreated, VaultDeleted, VaultList,
	CredentialSet, CredentialGet, CredentialDeleted, CredentialList,
	MasterKeyCreated, MasterKeyDeleted,
	AccessDenied, VaultError,
}

// Entry is one audit record. It carries names and metadata only, never a
// credential value.
type Entry struct {
	Timestamp      time.Time `json:"timestamp"`
	Event          Event     `json:"event"`
	VaultName      string    `json:"vaultName"`
	CredentialName string    `json:"credentialName,omitempty"`
	Success        bool      `json:"success"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
}

// State is the logger's lifecycle state. A logger only ever moves from
// Enabled to Disabled.
type State int

const (
	Enabled State = iota
	Disabled
)

func (s State) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

const (
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 20 * time.Millisecond
	maxLineSize    = 1024 * 1024
)

// Logger appends entries to a newline-delimited JSON file.
type Logger struct {
	path string
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	state    State
	dirReady bool
}

// New creates a logger writing to path. An empty path yields a logger that
// starts Disabled. diag receives a single warning if the logger disables
// itself; nil discards it.
func New(path string, diag *slog.Logger) *Logger {
	if diag == nil {
		diag = slog.New(slog.DiscardHandler)
	}

	l := &Logger{
		path:  path,
		log:   diag,
		now:   func() time.Time { return time.Now().UTC() },
		state: Enabled,
	}
	if path == "" {
		l.state = Disabled
	}
	return l
}

// NewDisabled returns a logger that records nothing.
func NewDisabled() *Logger {
	return New("", nil)
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// State returns the current lifecycle state.
func (l *Logger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Log appends one entry. A zero Timestamp is filled in. Any I/O failure moves
// the logger to Disabled for the rest of the process.
func (l *Logger) Log(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Disabled {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	if err := l.append(entry); err != nil {
		l.disable(err)
	}
}

func (l *Logger) append(entry Entry) error {
	if !l.dirReady {
		if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
			return fmt.Errorf("failed to create audit log directory: %w", err)
		}
		l.dirReady = true
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize audit entry: %w", err)
	}
	line = append(line, '\n')

	lock := flock.New(l.path+".lock", flock.SetPermissions(0600))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock audit log: %w", err)
	}
	if !locked {
		return errors.New("failed to lock audit log: timeout")
	}
	defer lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return f.Close()
}

// disable must be called with mu held.
func (l *Logger) disable(cause error) {
	l.state = Disabled
	l.log.Warn("audit logging disabled", slog.String("path", l.path), slog.Any("error", cause))
}

// ReadLog returns up to limit entries, most recent first. A limit of zero or
// less returns every entry. It returns an empty slice when the logger is
// disabled or the file cannot be read, and skips malformed lines.
func (l *Logger) ReadLog(limit int) []Entry {
	l.mu.Lock()
	disabled := l.state == Disabled
	l.mu.Unlock()

	if disabled {
		return []Entry{}
	}

	f, err := os.Open(l.path)
	if err != nil {
		return []Entry{}
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if scanner.Err() != nil {
		return []Entry{}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func (l *Logger) emit(event Event, vaultName, credName string, err error) {
	entry := Entry{
		Event:          event,
		VaultName:      vaultName,
		CredentialName: credName,
		Success:        err == nil && event != AccessDenied && event != VaultError,
	}
	if err != nil {
		if code, ok := vaulterr.CodeOf(err); ok {
			entry.ErrorCode = string(code)
		}
		entry.ErrorMessage = err.Error()
	}
	l.Log(entry)
}

func (l *Logger) LogVaultCreated(vaultName string) {
	l.emit(VaultCreated, vaultName, "", nil)
}

func (l *Logger) LogVaultDeleted(vaultName string) {
	l.emit(VaultDeleted, vaultName, "", nil)
}

// LogVaultList records an enumeration of vault names. Entries use "*" as
// the vault name.
func (l *Logger) LogVaultList() {
	l.emit(VaultList, "*", "", nil)
}

func (l *Logger) LogCredentialSet(vaultName, credName string) {
	l.emit(CredentialSet, vaultName, credName, nil)
}

func (l *Logger) LogCredentialGet(vaultName, credName string) {
	l.emit(CredentialGet, vaultName, credName, nil)
}

func (l *Logger) LogCredentialDeleted(vaultName, credName string) {
	l.emit(CredentialDeleted, vaultName, credName, nil)
}

func (l *Logger) LogCredentialList(vaultName string) {
	l.emit(CredentialList, vaultName, "", nil)
}

func (l *Logger) LogMasterKeyCreated(vaultName string) {
	l.emit(MasterKeyCreated, vaultName, "", nil)
}

func (l *Logger) LogMasterKeyDeleted(vaultName string) {
	l.emit(MasterKeyDeleted, vaultName, "", nil)
}

// LogAccessDenied records a key store refusal. credName may be empty.
func (l *Logger) LogAccessDenied(vaultName, credName string, err error) {
	l.emit(AccessDenied, vaultName, credName, err)
}

// LogVaultError records any other failed operation. credName may be empty.
func (l *Logger) LogVaultError(vaultName, credName string, err error) {
	l.emit(VaultError, vaultName, credName, err)
}
