package ir

// Version constants for persisted records and the engine.
const (
	// SchemaVersion is the version of the persisted run record layout.
	SchemaVersion = "1"

	// EngineVersion is the bfvm engine version.
	EngineVersion = "0.1.0"
)
