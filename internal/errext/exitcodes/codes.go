// Package exitcodes contains the process exit codes of antidetect.
package exitcodes

// ExitCode is a process exit code.
type ExitCode uint8

// Exit codes per failed stage. Generic failures exit with 1.
const (
	Generic          ExitCode = 1
	InvalidConfig    ExitCode = 2
	AuthFailed       ExitCode = 3
	ProfileFailed    ExitCode = 4
	SessionFailed    ExitCode = 5
	DriverFailed     ExitCode = 6
	AutomationFailed ExitCode = 7
)
