package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrBlocked              = errors.New("command blocked")
	ErrCacheIO              = errors.New("cache i/o error")
	ErrHistoryIO            = errors.New("history i/o error")
	ErrDaemonAlreadyRunning = errors.New("daemon already running")
	ErrDaemonNotRunning     = errors.New("daemon not running")
	ErrIPCTimeout           = errors.New("daemon ipc timeout")
	ErrUnknownProvider      = errors.New("unknown provider")
)

// BlockedError carries the classifier verdict for a withheld command.
type BlockedError struct {
	Command string
	Reasons []string
}

func (e *BlockedError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("%s: %q", ErrBlocked, e.Command)
	}
	return fmt.Sprintf("%s: %q (%s)", ErrBlocked, e.Command, strings.Join(e.Reasons, "; "))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// ProviderUnavailableError explains how to make a provider usable.
type ProviderUnavailableError struct {
	Provider string
	Hint     string
}

func (e *ProviderUnavailableError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s: %s", ErrProviderUnavailable, e.Provider)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrProviderUnavailable, e.Provider, e.Hint)
}

func (e *ProviderUnavailableError) Unwrap() error { return ErrProviderUnavailable }

// Stable error kinds used on the IPC wire.
const (
	KindProviderUnavailable = "provider_unavailable"
	KindGenerationFailed    = "generation_failed"
	KindBlocked             = "blocked"
	KindUnknownProvider     = "unknown_provider"
	KindBusy                = "busy"
	KindInternal            = "internal"
)

var kindErrors = map[string]error{
	KindProviderUnavailable: ErrProviderUnavailable,
	KindGenerationFailed:    ErrGenerationFailed,
	KindBlocked:             ErrBlocked,
	KindUnknownProvider:     ErrUnknownProvider,
	// A saturated daemon is treated like a slow one so clients fall back.
	KindBusy:                ErrIPCTimeout,
}

// ErrorKind returns the wire kind for err.
func ErrorKind(err error) string {
	for kind, sentinel := range kindErrors {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// ErrorFromKind rebuilds an error that satisfies errors.Is for the sentinel named by kind.
func ErrorFromKind(kind, message string) error {
	if sentinel, ok := kindErrors[kind]; ok {
		return &remoteError{sentinel: sentinel, message: message}
	}
	return errors.New(message)
}

type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string { return e.message }

func (e *remoteError) Unwrap() error { return e.sentinel }
