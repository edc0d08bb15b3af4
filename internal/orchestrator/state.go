package orchestrator

import (
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
)

// State is a step of a demo run.
type State string

const (
	StateInit             State = "INIT"
	StateAuth             State = "AUTH"
	StateProfileReady     State = "PROFILE_READY"
	StateSessionStarting  State = "SESSION_STARTING"
	StateSessionReady     State = "SESSION_READY"
	StateDriverConnecting State = "DRIVER_CONNECTING"
	StateAutomating       State = "AUTOMATING"
	StateDone             State = "DONE"
	StateCleanup          State = "CLEANUP"
)

// exitCode is the process exit code of a run that failed in s.
func (s State) exitCode() exitcodes.ExitCode {
	switch s {
	case StateAuth:
		return exitcodes.AuthFailed
	case StateInit, StateProfileReady:
		return exitcodes.ProfileFailed
	case StateSessionStarting, StateSessionReady:
		return exitcodes.SessionFailed
	case StateDriverConnecting:
		return exitcodes.DriverFailed
	case StateAutomating:
		return exitcodes.AutomationFailed
	default:
		return exitcodes.Generic
	}
}
