package domain

import "path/filepath"

const (
	// StampDirName is the directory, relative to the config file, holding default stamp files.
	StampDirName = ".stamps"

	// StampFileExt is the extension given to default stamp files.
	StampFileExt = ".stamp"

	// ConfigFileName is the default name of the action configuration file.
	ConfigFileName = "stamp.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the permission given to committed stamp files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultStampPath returns the stamp location used when an action does not declare one.
// It joins root, .stamps and <name>.stamp.
func DefaultStampPath(root, actionName string) string {
	return filepath.Join(root, StampDirName, actionName+StampFileExt)
}
