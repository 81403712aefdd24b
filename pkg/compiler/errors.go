package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/merge"
	"github.com/platinummonkey/apicatalog/pkg/refs"
)

var (
	// ErrMalformedDescription is returned when a description lacks a required
	// field or holds a value of the wrong shape
	ErrMalformedDescription = errors.New("malformed description")
	// ErrTooComplex is returned when schema composition exceeds the variant limit
	ErrTooComplex = merge.ErrTooComplex
)

// MalformedError names the location of a malformed value as a JSON pointer
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%v at %s: %s", ErrMalformedDescription, e.Path, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedDescription }

func malformed(path, format string, args ...interface{}) error {
	return &MalformedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// decodeError classifies a decoding failure. Oversized documents keep their
// too-complex kind; anything else is malformed at the root.
func decodeError(err error) error {
	if errors.Is(err, ErrTooComplex) {
		return err
	}
	return &MalformedError{Path: "#", Reason: err.Error()}
}

// refError adds the location of the failing reference
func refError(path string, err error) error {
	return fmt.Errorf("resolving %s: %w", path, err)
}

// IsUserError reports whether err was caused by the description rather than
// by the environment
func IsUserError(err error) bool {
	return errors.Is(err, ErrMalformedDescription) ||
		errors.Is(err, ErrTooComplex) ||
		errors.Is(err, refs.ErrBrokenReference) ||
		errors.Is(err, refs.ErrUnsupportedReference) ||
		errors.Is(err, refs.ErrReferenceCycle)
}

// pointer appends escaped segments to a JSON pointer
func pointer(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(refs.Escape(s))
	}
	return b.String()
}
