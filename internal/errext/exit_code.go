// Package errext tags errors with the process exit code of the stage that
// produced them.
package errext

import (
	"errors"

	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
)

// HasExitCode is implemented by errors that know how the process should exit.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// codedError keeps the original message and chain and adds an exit code.
type codedError struct {
	err  error
	code exitcodes.ExitCode
}

var _ HasExitCode = (*codedError)(nil)

func (e *codedError) Error() string                { return e.err.Error() }
func (e *codedError) Unwrap() error                { return e.err }
func (e *codedError) ExitCode() exitcodes.ExitCode { return e.code }

// WithExitCodeIfNone tags err with code. The innermost stage decides: when
// anything in the chain of err already has a code, err is returned unchanged.
func WithExitCodeIfNone(err error, code exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	if _, tagged := codeIn(err); tagged {
		return err
	}
	return &codedError{err: err, code: code}
}

// ExitCodeOf returns 0 for nil, the code found in the chain of err, or
// exitcodes.Generic for an untagged error.
func ExitCodeOf(err error) exitcodes.ExitCode {
	if err == nil {
		return 0
	}
	if code, tagged := codeIn(err); tagged {
		return code
	}
	return exitcodes.Generic
}

func codeIn(err error) (exitcodes.ExitCode, bool) {
	var coded HasExitCode
	if !errors.As(err, &coded) {
		return 0, false
	}
	return coded.ExitCode(), true
}
