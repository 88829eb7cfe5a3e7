package config

import (
	"os"
	"path/filepath"
)

// Location is where settings are persisted
type Location string

// Locations, in their default search order
const (
	Global Location = "global"
	Local  Location = "local"
)

// DefaultSearchOrder lets local settings override global ones
var DefaultSearchOrder = []Location{Global, Local}

// ParseLocation from a flag
func ParseLocation(global bool) Location {
	if global {
		return Global
	}
	return Local
}

const (
	// PublicDir is the folder of a working copy holding public settings
	PublicDir = ".datalink"

	// PrivateDir is the folder of a working copy holding private settings, never committed
	PrivateDir = ".git/datalink"

	globalPrivateDir = "private"
)

// DefaultHome is the user-wide location of datalink settings
func DefaultHome() string {
	if home := os.Getenv("DATALINK_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return PublicDir
	}
	return filepath.Join(home, PublicDir)
}

func documentDir(loc Location, home, root string, private bool) string {
	switch {
	case loc == Global && private:
		return filepath.Join(home, globalPrivateDir)
	case loc == Global:
		return home
	case private:
		return filepath.Join(root, filepath.FromSlash(PrivateDir))
	default:
		return filepath.Join(root, PublicDir)
	}
}

func documentKey(category Category) string {
	return string(category) + ".json"
}
