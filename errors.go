package pagevault

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures so that callers can react to the failing
// subsystem without parsing error strings.
type ErrKind uint8

const (
	ErrIO ErrKind = iota + 1
	ErrLogBackend
	ErrSnapshotBackend
	ErrKey
	ErrCrypto
	ErrCompression
)

func (k ErrKind) String() string {
	switch k {
	case ErrIO:
		return "io"
	case ErrLogBackend:
		return "log backend"
	case ErrSnapshotBackend:
		return "snapshot backend"
	case ErrKey:
		return "key"
	case ErrCrypto:
		return "crypto"
	case ErrCompression:
		return "compression"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var ErrClosed = errors.New("pagevault: store is closed")

type StoreError struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func storeErrf(kind ErrKind, err error, format string, args ...any) error {
	return &StoreError{kind, fmt.Sprintf(format, args...), err}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pagevault: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("pagevault: %s: %s", e.Kind, e.Msg)
}

// Kind reports the ErrKind of err, unwrapping as needed, or zero if err does
// not carry one.
func Kind(err error) ErrKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}
