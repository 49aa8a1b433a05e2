package config

import (
	"os"
	"path/filepath"
)

// userRoamingDir returns %AppData%\siglocate when it exists. Packaged hosts
// redirect %AppData% into their own roaming folder.
func userRoamingDir() (string, bool) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return existingDir(filepath.Join(base, AppDir))
}
