package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/display"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/sym"
)

// LsCmd lists the jobs recorded in the registry
var LsCmd = &cobra.Command{
	Use:   "ls",
	Short: sym.DB + " List jobs recorded in the registry",
	Long: sym.DB + ` ls — List jobs recorded in the registry

Every record is loaded and its status derived now. A job recorded as started
that has since concluded is removed from the registry as it is listed, so it
appears in exactly one listing after it finishes.`,
	RunE: runLs,
}

func init() {
	LsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.adapter.Keys(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list registry")
	}

	rows := make([]jobRow, 0, len(ids))
	for _, id := range ids {
		j, err := a.adapter.Lookup(ctx, id)
		if err != nil {
			rows = append(rows, jobRow{ID: id.String(), Status: job.StatusError, Error: err.Error()})
			continue
		}
		// Lookup already re-derived the status against the wall clock
		rows = append(rows, rowFor(j, j.CachedStatus()))
	}

	if len(rows) == 0 && !display.ShouldOutputJSON(cmd) {
		pterm.Info.Printfln("No jobs in the %s registry", a.backend.Name())
		return nil
	}
	return printRows(cmd, rows)
}
