package bpkv

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configures an Engine.
type Options struct {
	// ArenaSize is the fixed arena reservation in bytes. The arena never grows;
	// writes fail with ErrOutOfMemory once it is full.
	ArenaSize int `yaml:"arena_size"`

	// Order is the maximum number of children of an internal node.
	// Nodes hold at most Order-1 keys.
	Order int `yaml:"order"`

	// FilterInitBits is the initial membership filter size.
	FilterInitBits uint64 `yaml:"filter_init_bits"`

	// FilterMaxBits caps filter growth.
	FilterMaxBits uint64 `yaml:"filter_max_bits"`

	// FilterGrowInterval is how many newly added keys pass between growth checks.
	FilterGrowInterval int `yaml:"filter_grow_interval"`

	// FilterGrowThreshold is the fill ratio at which the filter grows.
	FilterGrowThreshold float64 `yaml:"filter_grow_threshold"`

	// NoLock skips the process lock file for path-backed engines.
	NoLock bool `yaml:"no_lock"`

	// Logger receives engine events. Nil disables logging.
	Logger *zap.Logger `yaml:"-"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ArenaSize:           DefaultArenaSize,
		Order:               DefaultOrder,
		FilterInitBits:      DefaultFilterInitBits,
		FilterMaxBits:       DefaultFilterMaxBits,
		FilterGrowInterval:  DefaultFilterGrowInterval,
		FilterGrowThreshold: DefaultFilterGrowThreshold,
	}
}

// LoadOptions reads options from a YAML file. Fields missing from the file
// keep their defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(ErrIO, err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, WrapError(ErrInvalid, fmt.Errorf("parse %s: %w", path, err))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if o.ArenaSize <= 0 {
		return WrapError(ErrInvalid, fmt.Errorf("arena_size must be positive, got %d", o.ArenaSize))
	}
	if o.Order < MinOrder {
		return WrapError(ErrInvalid, fmt.Errorf("order must be at least %d, got %d", MinOrder, o.Order))
	}
	if o.FilterInitBits == 0 || o.FilterInitBits%64 != 0 {
		return WrapError(ErrInvalid, fmt.Errorf("filter_init_bits must be a positive multiple of 64, got %d", o.FilterInitBits))
	}
	if o.FilterMaxBits%64 != 0 || o.FilterMaxBits < o.FilterInitBits {
		return WrapError(ErrInvalid, fmt.Errorf("filter_max_bits must be a multiple of 64 and >= filter_init_bits, got %d", o.FilterMaxBits))
	}
	if o.FilterGrowInterval <= 0 {
		return WrapError(ErrInvalid, fmt.Errorf("filter_grow_interval must be positive, got %d", o.FilterGrowInterval))
	}
	if o.FilterGrowThreshold <= 0 || o.FilterGrowThreshold > 1 {
		return WrapError(ErrInvalid, fmt.Errorf("filter_grow_threshold must be in (0, 1], got %g", o.FilterGrowThreshold))
	}
	return nil
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
