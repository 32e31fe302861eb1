// Package display decides between human and machine output for CLI commands.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// OutputEnv forces JSON output for every command when set to "json"
const OutputEnv = "LONGRUN_OUTPUT"

// ShouldOutputJSON reports whether cmd should print JSON: an explicit --json
// flag wins, then LONGRUN_OUTPUT
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}

// OutputJSON marshals v and writes it to w
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
