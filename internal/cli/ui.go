package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kornev-zhora/anti-detect-browsing/internal/orchestrator"
)

// colorize returns a color that is a no-op when colors are off or stdout is
// not a terminal.
func (gs *globalState) colorize(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if gs.flags.noColor || !gs.stdOutTTY {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// printReport writes the outcome summary of a demo run to stdout.
func printReport(gs *globalState, rep *orchestrator.Report, runErr error) {
	w := gs.stdOut
	faint := gs.colorize(color.Faint)
	warn := gs.colorize(color.FgYellow)

	fprintf(w, "\n")
	if rep.Result != nil {
		if rep.Result.FinalURL != "" {
			fprintf(w, "  final url:   %s\n", rep.Result.FinalURL)
		}
		if rep.Result.Title != "" {
			fprintf(w, "  page title:  %s\n", rep.Result.Title)
		}
		for _, shot := range rep.Result.Screenshots {
			fprintf(w, "  screenshot:  %s\n", shot)
		}
	}
	if rep.ProfileID != "" {
		fprintf(w, "  profile:     %s\n", rep.ProfileID)
	}
	fprintf(w, "  run:         %s\n", faint.Sprint(rep.RunID))
	fprintf(w, "  states:      %s\n", faint.Sprint(joinStates(rep.States)))
	for _, msg := range rep.CleanupWarnings {
		fprintf(w, "  %s %s\n", warn.Sprint("warning:"), msg)
	}

	if runErr != nil {
		fprintf(w, "\n%s\n", gs.colorize(color.FgRed, color.Bold).Sprintf("Demo failed at %s.", rep.FailedStage))
		return
	}
	fprintf(w, "\n%s\n", gs.colorize(color.FgGreen, color.Bold).Sprint("Demo completed successfully."))
}

func joinStates(states []orchestrator.State) string {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}
	return strings.Join(names, " > ")
}

// fprintf panics when there's an error writing to the supplied io.Writer
func fprintf(w io.Writer, format string, a ...interface{}) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err.Error())
	}
}
