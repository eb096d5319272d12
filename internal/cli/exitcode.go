package cli

import (
	"errors"

	"github.com/cosync/cosyncjwt"
)

var (
	errUsage  = errors.New("usage")
	errConfig = errors.New("config")
)

// Process exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitUsage       = 2
	ExitAuth        = 3
	ExitConfig      = 4
	ExitInterrupted = 130
)

// ExitCode maps err onto a process exit code.
func ExitCode(err error) int {
	var pwErr *cosyncjwt.PasswordError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, cosyncjwt.ErrNotConfigured), errors.Is(err, errConfig):
		return ExitConfig
	case errors.Is(err, cosyncjwt.ErrInvalidCredentials), errors.Is(err, cosyncjwt.ErrNoAccessToken):
		return ExitAuth
	case errors.As(err, &pwErr), errors.Is(err, errUsage):
		return ExitUsage
	default:
		return ExitError
	}
}
