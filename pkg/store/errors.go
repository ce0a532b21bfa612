package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can tell causes apart
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFileNotFound
	KindCloseFailed
	KindWriteFailed
	KindPointerQueryFailed
	KindPointerSeekFailed
	KindReadFailed
	KindTruncateFailed
)

var kindMessages = map[Kind]string{
	KindUnknown:            "unknown failure",
	KindFileNotFound:       "file not found",
	KindCloseFailed:        "cannot close the file",
	KindWriteFailed:        "cannot write to the file",
	KindPointerQueryFailed: "cannot get pointer of the file",
	KindPointerSeekFailed:  "cannot move pointer of the file",
	KindReadFailed:         "cannot read from the file",
	KindTruncateFailed:     "cannot change length of the file",
}

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindFileNotFound:       "file_not_found",
	KindCloseFailed:        "close_failed",
	KindWriteFailed:        "write_failed",
	KindPointerQueryFailed: "pointer_query_failed",
	KindPointerSeekFailed:  "pointer_seek_failed",
	KindReadFailed:         "read_failed",
	KindTruncateFailed:     "truncate_failed",
}

// String returns a snake_case name, suitable for metric labels
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels for errors.Is; they match any *Error of the same kind
var (
	ErrFileNotFound       = &Error{Kind: KindFileNotFound}
	ErrCloseFailed        = &Error{Kind: KindCloseFailed}
	ErrWriteFailed        = &Error{Kind: KindWriteFailed}
	ErrPointerQueryFailed = &Error{Kind: KindPointerQueryFailed}
	ErrPointerSeekFailed  = &Error{Kind: KindPointerSeekFailed}
	ErrReadFailed         = &Error{Kind: KindReadFailed}
	ErrTruncateFailed     = &Error{Kind: KindTruncateFailed}
)

// Causes wrapped by *Error
var (
	ErrNotOpen  = errors.New("store is not open")
	ErrNoRecord = errors.New("no record at position")
)

// Error is returned by every failing store operation
type Error struct {
	Op   string // operation that failed, e.g. "read" or "swap"
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := kindMessages[e.Kind]
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
