package ir

// Version constants for spec schema and engine.
const (
	// SpecVersion is the declarative spec schema version stored alongside
	// every library entry.
	SpecVersion = "1"

	// EngineVersion is the runcost engine version.
	EngineVersion = "0.1.0"
)
