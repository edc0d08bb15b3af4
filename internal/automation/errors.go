package automation

import (
	"fmt"
	"strings"
	"time"
)

// ElementErrorKind tells why an element could not be used.
type ElementErrorKind int

const (
	// ElementNotFound means none of the candidate selectors matched.
	ElementNotFound ElementErrorKind = iota + 1
	// ElementTimeout means the awaited element did not appear in time.
	ElementTimeout
)

func (k ElementErrorKind) String() string {
	switch k {
	case ElementNotFound:
		return "element not found"
	case ElementTimeout:
		return "element timeout"
	default:
		return "unknown"
	}
}

// ElementError is returned by the flows when the page does not have the
// expected form.
type ElementError struct {
	Kind      ElementErrorKind
	Field     string
	Selectors []string
	Timeout   time.Duration
}

func (e *ElementError) Error() string {
	if e.Kind == ElementTimeout {
		return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, strings.Join(e.Selectors, ", "))
	}
	return fmt.Sprintf("Could not find %s.", e.Field)
}
