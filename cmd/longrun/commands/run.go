package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/am"
	"github.com/teranos/longrun/display"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/pulse/longrun"
	"github.com/teranos/longrun/sym"
)

// RunCmd starts a batch of timed jobs
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.Pulse + " Start a batch of timed jobs",
	Long: sym.Pulse + ` run — Start a batch of timed jobs

Each job gets a random duration of at least --min-duration seconds and is
recorded in the registry, so "longrun status" in a later invocation still
finds it. Without --wait the command returns as soon as every job started.

Examples:
  longrun run --jobs 5 --min-duration 10
  longrun run --jobs 2 --wait
  longrun run --jobs 3 --json`,
	RunE: runRun,
}

var (
	runJobsFlag        uint32
	runMinDurationFlag int32
	runWaitFlag        bool
	runPollFlag        time.Duration
)

func init() {
	RunCmd.Flags().Uint32VarP(&runJobsFlag, "jobs", "n", 0, "Number of jobs (default from service.default_number_of_jobs)")
	RunCmd.Flags().Int32Var(&runMinDurationFlag, "min-duration", 0, "Minimum job duration in seconds (default from service.default_min_duration)")
	RunCmd.Flags().BoolVar(&runWaitFlag, "wait", false, "Wait until every job concludes, then close the service")
	RunCmd.Flags().Bool("json", false, "Output jobs as JSON")
	RunCmd.Flags().DurationVar(&runPollFlag, "poll", time.Second, "Status poll interval with --wait")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	params := longrun.Parameters{}
	count := a.cfg.Service.DefaultNumberOfJobs
	if cmd.Flags().Changed("jobs") {
		count = runJobsFlag
	}
	params.NumberOfJobs = &count
	if cmd.Flags().Changed("min-duration") {
		params.MinDuration = &runMinDurationFlag
	}

	set, err := a.svc.Run(ctx, params)
	if err != nil {
		return errors.Wrap(err, "run failed")
	}

	now := a.svc.Now()
	rows := make([]jobRow, 0, set.Len())
	unregistered := 0
	for _, j := range set.Jobs() {
		rows = append(rows, rowFor(j, j.DeriveStatus(now)))
		if !j.Registered() {
			unregistered++
		}
	}
	if err := printRows(cmd, rows); err != nil {
		return err
	}

	asJSON := display.ShouldOutputJSON(cmd)
	if !asJSON {
		if unregistered > 0 {
			pterm.Warning.Printfln("%d jobs could not be registered and are only known to this process", unregistered)
		}
		if a.cfg.Registry.Backend == am.BackendMemory && !runWaitFlag {
			pterm.Warning.Println("memory registry: job status is lost when this process exits")
		}
	}

	if !runWaitFlag {
		return nil
	}
	return waitAndClose(ctx, cmd, a, set, asJSON)
}

// waitAndClose polls the set until nothing is in flight, then closes the service
func waitAndClose(ctx context.Context, cmd *cobra.Command, a *app, set *longrun.JobSet, quiet bool) error {
	var spinner *pterm.SpinnerPrinter
	if !quiet {
		spinner, _ = pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).Start("Waiting for jobs to conclude...")
	}

	ticker := time.NewTicker(runPollFlag)
	defer ticker.Stop()

	for {
		busy := set.InFlight(a.svc.Now())
		if len(busy) == 0 {
			break
		}
		if spinner != nil {
			spinner.UpdateText(fmt.Sprintf("Waiting for %d of %d jobs...", len(busy), set.Len()))
		}
		select {
		case <-ctx.Done():
			if spinner != nil {
				spinner.Warning("Interrupted; jobs keep running")
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := a.svc.Close(ctx); err != nil {
		if spinner != nil {
			spinner.Fail("Close refused")
		}
		return errors.Wrap(err, "failed to close service")
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("%d jobs concluded, service closed", set.Len()))
	}
	return nil
}
