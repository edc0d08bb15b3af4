package cloud

import "fmt"

// AuthError reports missing or rejected vendor credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RemoteAPIError reports a non-2xx response or a body missing a required field.
type RemoteAPIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Body)
}

// ConnectionError reports a transport failure (DNS, refused connection, timeout).
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
