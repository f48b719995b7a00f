package cli

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path or record not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Run history database error
	ErrCodeConfig      = "E009" // bfvm.toml or flag error

	// Program and profile errors
	ErrCodeMismatchedBrackets = "E201" // Unbalanced '[' / ']'
	ErrCodeInvalidSettings    = "E202" // Settings failed validation
	ErrCodeInvalidProfile     = "E203" // Profile failed to compile
	ErrCodeProfileNotFound    = "E204" // Named profile not defined
	ErrCodeScenarioFailed     = "E205" // One or more scenarios failed
)
