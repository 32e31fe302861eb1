package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/display"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/sym"
)

// StatusCmd derives the status of jobs by identity
var StatusCmd = &cobra.Command{
	Use:   "status <job-id>...",
	Short: sym.Pulse + " Show the derived status of jobs",
	Long: sym.Pulse + ` status — Show the derived status of jobs

Status is derived from each job's recorded interval and the wall clock, so it
is correct in any process that can reach the registry. Unknown identities are
reported with status "error".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

// ResultsCmd prints when a job ran
var ResultsCmd = &cobra.Command{
	Use:   "results <job-id>",
	Short: sym.Pulse + " Show the results of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	StatusCmd.Flags().Bool("json", false, "Output as JSON")
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, errors.NewInvalidRequestError("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rows := make([]jobRow, 0, len(ids))
	missing := 0
	for _, id := range ids {
		j, err := a.svc.Lookup(ctx, id)
		if err != nil {
			missing++
			rows = append(rows, jobRow{ID: id.String(), Status: job.StatusError, Error: err.Error()})
			continue
		}
		rows = append(rows, rowFor(j, j.DeriveStatus(a.svc.Now())))
	}

	if err := printRows(cmd, rows); err != nil {
		return err
	}
	if missing > 0 {
		return errors.Wrapf(errors.ErrNotFound, "%d of %d jobs", missing, len(ids))
	}
	return nil
}

func runResults(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resources, err := a.svc.Results(ctx, ids[0])
	if err != nil {
		return errors.Wrapf(err, "no results for %s", ids[0])
	}

	return display.OutputJSON(cmd.OutOrStdout(), resources)
}
