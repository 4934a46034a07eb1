package cmd

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	codeOK        = 0
	codeError     = 1
	codeConflicts = 2
)

// exitError carries a non-default exit code. A nil err means the command
// already reported its outcome and only the code matters.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

// errConflicts signals that conflicts remain after a check or a pass.
var errConflicts = &exitError{code: codeConflicts}

func exitCode(err error) int {
	if err == nil {
		return codeOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return codeError
}
