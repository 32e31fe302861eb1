package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/longrun/display"
	"github.com/teranos/longrun/pulse/job"
)

// jobRow is one line of run, status and ls output
type jobRow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      job.Status `json:"status"`
	Registered  bool       `json:"registered"`
	Start       int64      `json:"start,omitempty"`
	End         int64      `json:"end,omitempty"`
	Duration    int64      `json:"duration,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type intervalJob interface {
	Interval() job.Interval
}

func rowFor(j job.Job, status job.Status) jobRow {
	row := jobRow{
		ID:          j.ID().String(),
		Name:        j.Name(),
		Description: j.Description(),
		Status:      status,
		Registered:  j.Registered(),
	}
	if tj, ok := j.(intervalJob); ok {
		iv := tj.Interval()
		row.Start, row.End, row.Duration = iv.Start, iv.End, iv.Duration
	}
	return row
}

func clockTime(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).Format(time.TimeOnly)
}

func statusStyle(s job.Status) string {
	switch s {
	case job.StatusSucceeded:
		return pterm.FgGreen.Sprint(s)
	case job.StatusStarted:
		return pterm.FgCyan.Sprint(s)
	case job.StatusError:
		return pterm.FgRed.Sprint(s)
	default:
		return pterm.FgGray.Sprint(s)
	}
}

// printRows writes rows as a table, or as JSON when requested
func printRows(cmd *cobra.Command, rows []jobRow) error {
	out := cmd.OutOrStdout()
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(out, rows)
	}

	data := pterm.TableData{{"ID", "Name", "Duration", "Start", "End", "Status", "Registered"}}
	for _, r := range rows {
		status := statusStyle(r.Status)
		if r.Error != "" {
			status += " (" + r.Error + ")"
		}
		data = append(data, []string{
			r.ID,
			r.Name,
			strconv.FormatInt(r.Duration, 10) + "s",
			clockTime(r.Start),
			clockTime(r.End),
			status,
			strconv.FormatBool(r.Registered),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(out, table)
	return err
}
