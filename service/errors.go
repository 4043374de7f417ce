package service

import (
	"errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindDecode
	KindModelUnavailable
	KindTooLarge
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindDecode:
		return "decode"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTooLarge:
		return "too_large"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error tags a pipeline failure with the kind the HTTP layer maps to a status.
// Its message is the wrapped error's message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of err. Untagged errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrNoFile        = newError(KindBadRequest, errors.New("Aucun fichier envoyé"))
	ErrModelNotReady = errors.New("model not initialized")
)

func TooLarge(err error) error { return newError(KindTooLarge, err) }
