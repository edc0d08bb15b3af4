package automation

import "strings"

// Target pages. Selectors are isolated here because the demo pages may change
// their markup; update these when the flows break.
const (
	LoginURL = "https://www.scrapingcourse.com/login/csrf"
	AuditURL = "https://bot.sannysoft.com"
)

// Demo credentials accepted by the scrapingcourse.com login page.
const (
	DemoEmail    = "admin@example.com"
	DemoPassword = "password"
)

// Candidate selectors per field, tried in order. The first match wins.
var (
	EmailSelectors = []string{
		`input[name="email"]`,
		`input[type="email"]`,
		`#email`,
	}
	PasswordSelectors = []string{
		`input[name="password"]`,
		`input[type="password"]`,
		`#password`,
	}
	SubmitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`button:not([type])`,
	}
)

// AuditReady is present once the fingerprint audit page rendered.
const AuditReady = `body`

// anyOf joins selectors into one selector group matching any of them.
func anyOf(selectors []string) string {
	return strings.Join(selectors, ", ")
}
