package bpkv

// Dump file format
const (
	// FileMagic tags a bpkv dump file ("SBPT" read as a little-endian uint32)
	FileMagic uint32 = 0x54504253

	// fileHeaderSize is magic + entry count + filter bit count
	fileHeaderSize = 4 + 8 + 8

	// entryHeaderSize is key length + value length per persisted entry
	entryHeaderSize = 4 + 4
)

// Engine defaults
const (
	// DefaultArenaSize is the default arena reservation (128 MiB)
	DefaultArenaSize = 128 * 1024 * 1024

	// DefaultOrder is the default maximum number of children per internal node
	DefaultOrder = 64

	// MinOrder is the smallest order that still splits into non-empty halves
	MinOrder = 4

	// DefaultFilterInitBits is the initial membership filter size (1M bits)
	DefaultFilterInitBits = 1 << 20

	// DefaultFilterMaxBits is the size at which the filter stops growing (64M bits)
	DefaultFilterMaxBits = 1 << 26

	// DefaultFilterGrowInterval is how many new keys pass between growth checks
	DefaultFilterGrowInterval = 1000

	// DefaultFilterGrowThreshold is the fill ratio that triggers growth
	DefaultFilterGrowThreshold = 0.5

	// FilterGrowthFactor multiplies the bit count on each growth step
	FilterGrowthFactor = 4
)

// Size limits
const (
	// MaxKeySize is the largest key the dump format can represent
	MaxKeySize = 1<<32 - 1

	// MaxValueSize is the largest value the dump format can represent
	MaxValueSize = 1<<32 - 1
)

// lockSuffix names the process lock file next to a store path
const lockSuffix = ".lock"

// tmpSuffix names the scratch file Save writes before renaming
const tmpSuffix = ".tmp"
