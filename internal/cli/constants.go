package cli

// Default values for CLI flags and output formatting.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// setCommandArgs is the number of arguments expected by the config set command.
	setCommandArgs = 2
	// packCommandArgs is the number of arguments expected by the pack command.
	packCommandArgs = 2
)
