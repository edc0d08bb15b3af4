package cli

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
)

func getGoLoginInspectCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "gologin-inspect PROFILE_ID",
		Short: "Print the GoLogin profile document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newGoLoginClient(gs).GetProfile(gs.ctx, args[0])
			if err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.ProfileFailed)
			}

			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "  "); err != nil {
				return err
			}
			fprintf(gs.stdOut, "%s\n", out.String())
			return nil
		},
	}
}
