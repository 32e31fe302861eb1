package display

import (
	"encoding/json"
	"os"
)

// CompactEnv selects single-line JSON, for piping into line-oriented tools
const CompactEnv = "LONGRUN_COMPACT_JSON"

// MarshalJSON marshals indented JSON, or compact JSON when LONGRUN_COMPACT_JSON is set
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv(CompactEnv) != "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
