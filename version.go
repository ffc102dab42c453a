package bpkv

import "fmt"

// Version constants
const (
	// Major is the major version number
	Major = 0

	// Minor is the minor version number
	Minor = 1

	// Patch is the patch version number
	Patch = 0
)

// VersionInfo contains version information.
type VersionInfo struct {
	Major     uint8
	Minor     uint8
	Patch     uint8
	FileMagic uint32
	Describe  string
}

// Version returns the version string of bpkv.
func Version() string {
	return fmt.Sprintf("bpkv %d.%d.%d (in-memory B+tree store, dump format %#08x)", Major, Minor, Patch, FileMagic)
}

// GetVersionInfo returns version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Major:     Major,
		Minor:     Minor,
		Patch:     Patch,
		FileMagic: FileMagic,
		Describe:  fmt.Sprintf("v%d.%d.%d", Major, Minor, Patch),
	}
}
