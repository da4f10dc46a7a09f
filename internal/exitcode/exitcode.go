// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by every command.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown or ambiguous task).
	UserError = 1

	// AuthError indicates an auth or settings error.
	AuthError = 2

	// BackendError indicates a server, remote API or network error.
	BackendError = 3
)
