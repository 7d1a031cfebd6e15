// Package exitcode defines exit codes for the CLI.
package exitcode

import "taskctl/internal/apperr"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, failed validation, unknown ref).
	UserError = 1

	// AuthError indicates a missing, rejected or expired session.
	AuthError = 2

	// BackendError indicates a failed request or an unreachable server.
	BackendError = 3
)

// For maps err to an exit code by its failure category.
func For(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return UserError
	case apperr.KindAuth:
		return AuthError
	default:
		return BackendError
	}
}
