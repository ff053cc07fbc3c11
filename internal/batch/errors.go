package batch

import (
	"errors"
	"fmt"
)

var (
	ErrUnclassified  = errors.New("unclassified config")
	ErrCommandFailed = errors.New("command failed")
	ErrDelete        = errors.New("delete staging dir")
)

// Error ties a failure kind to the API it happened on.
type Error struct {
	Kind error
	API  string
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.API, e.Kind.Error())
	}
	return fmt.Sprintf("%s: %s: %s", e.API, e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func apiErrorf(kind error, api, format string, args ...any) error {
	return &Error{Kind: kind, API: api, Msg: fmt.Sprintf(format, args...)}
}
