// Package sym defines the symbols longrun uses as structured log markers and CLI prefixes.
package sym

// System infrastructure symbols.
const (
	Pulse      = "꩜" // timed jobs and their derived status
	PulseOpen  = "✿" // service startup, registry recovery
	PulseClose = "❀" // service teardown
	DB         = "⊔" // registry storage layer
	AM         = "≡" // configuration
)

// Descriptions maps each symbol to what it marks.
var Descriptions = map[string]string{
	Pulse:      "Timed jobs and their derived status",
	PulseOpen:  "Service startup and registry recovery",
	PulseClose: "Service teardown",
	DB:         "Registry storage layer",
	AM:         "Configuration",
}
