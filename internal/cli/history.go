package cli

import (
	"errors"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
	"github.com/kornev-zhora/anti-detect-browsing/internal/store"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

func getHistoryCmd(gs *globalState) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent demo runs from the run journal",
		Long: `List recent demo runs. The journal is kept only when ANTIDETECT_HISTORY_DB
(or history.db_path in the config file) points at a SQLite database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if gs.cfg.History.DBPath == "" {
				return errext.WithExitCodeIfNone(
					errors.New("run history is disabled, set ANTIDETECT_HISTORY_DB to enable it"),
					exitcodes.InvalidConfig,
				)
			}
			if limit <= 0 {
				return errext.WithExitCodeIfNone(errors.New("--limit must be positive"), exitcodes.InvalidConfig)
			}

			s, err := store.New(gs.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.RecentRuns(gs.ctx, limit)
			if err != nil {
				return err
			}
			printRuns(gs, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func printRuns(gs *globalState, runs []types.RunRecord) {
	if len(runs) == 0 {
		fprintf(gs.stdOut, "No runs recorded yet.\n")
		return
	}

	ok := gs.colorize(color.FgGreen)
	failed := gs.colorize(color.FgRed)

	tw := tabwriter.NewWriter(gs.stdOut, 0, 0, 2, ' ', 0)
	fprintf(tw, "STARTED\tVENDOR\tFLOW\tOUTCOME\tDURATION\tPROFILE\tDETAIL\n")
	for _, r := range runs {
		outcome := ok.Sprint(r.Outcome)
		detail := r.FinalURL
		if r.Outcome == types.OutcomeFailure {
			outcome = failed.Sprint(r.Outcome)
			detail = r.FailedStage + ": " + r.Error
		}
		fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.Vendor, r.Flow, outcome,
			r.Duration().Round(time.Second), r.ProfileID, detail,
		)
	}
	if err := tw.Flush(); err != nil {
		panic(err.Error())
	}
}
