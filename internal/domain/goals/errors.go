package goals

import (
	"errors"
	"fmt"
)

// Sentinel kinds for goal resolution errors.
var (
	ErrParse      = errors.New("goal parse failed")
	ErrNoAlias    = errors.New("goal label has no alias")
	ErrUnresolved = errors.New("goal alias matches no person")
)

// ParseError describes one goal record dropped during resolution.
type ParseError struct {
	Label string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("goal %q: %s: %v", e.Label, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets callers match every ParseError against ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
