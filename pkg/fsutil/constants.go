package fsutil

// File and directory permission constants.
// These follow standard Unix permission conventions and are used for everything
// extpack writes below the extensions root and its own state directories.
const (
	// Default file modes.
	FileModeDefault = 0o644 // -rw-r--r--: Default for regular files
	FileModeSecure  = 0o640 // -rw-r-----: For the registry database

	// Directory modes.
	DirModeDefault = 0o755 // drwxr-xr-x: Default for directories
)
