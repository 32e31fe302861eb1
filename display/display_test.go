package display

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "status"}
	cmd.Flags().Bool("json", false, "")
	return cmd
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv(OutputEnv, "")

	cmd := newCmd()
	assert.False(t, ShouldOutputJSON(cmd))

	require.NoError(t, cmd.Flags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(cmd))

	t.Setenv(OutputEnv, "JSON")
	assert.True(t, ShouldOutputJSON(newCmd()), "env applies without the flag")
	assert.True(t, ShouldOutputJSON(nil))

	explicit := newCmd()
	require.NoError(t, explicit.Flags().Set("json", "false"))
	assert.False(t, ShouldOutputJSON(explicit), "flag wins over env")

	assert.True(t, ShouldOutputJSON(&cobra.Command{Use: "bare"}), "commands without the flag follow env")
}

func TestOutputJSON(t *testing.T) {
	t.Setenv(CompactEnv, "")
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	t.Setenv(CompactEnv, "1")
	buf.Reset()
	require.NoError(t, OutputJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\"a\":1}\n", buf.String())

	assert.Error(t, OutputJSON(&buf, make(chan int)))
}
