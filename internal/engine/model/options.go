package model

import (
	"fmt"
	"strings"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// DuplicatePolicy decides what happens when two animations share a name.
type DuplicatePolicy int

const (
	// DuplicateError fails the import.
	DuplicateError DuplicatePolicy = iota
	// DuplicateRename keeps both, suffixing later ones with ".1", ".2", ...
	DuplicateRename
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateRename {
		return "rename"
	}
	return "error"
}

// ParseDuplicatePolicy parses "error" or "rename".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return DuplicateError, nil
	case "rename":
		return DuplicateRename, nil
	}
	return DuplicateError, fmt.Errorf("unknown duplicate animation policy %q", s)
}

// DefaultTextureBits emulates the colour depth of the target hardware.
const DefaultTextureBits = 5

// ImportOptions controls import behaviour that is not dictated by the asset.
type ImportOptions struct {
	// TextureBits quantizes texture colour channels to this many bits.
	// 0 or 8 and above keeps full precision.
	TextureBits uint8

	// StripMipmapFilters replaces mipmapped sampler filters with their
	// single-level equivalent. Mip levels are generated either way.
	StripMipmapFilters bool

	// MaxJoints bounds the joint count of a skin. Zero means gpu.MaxJoints;
	// larger values are clamped to it.
	MaxJoints int

	// StrictExtras makes unparseable node or mesh extras fatal. Otherwise
	// the node's subtree falls back to default extras and a warning is logged.
	StrictExtras bool

	// DuplicateAnimations decides the fate of repeated animation names.
	DuplicateAnimations DuplicatePolicy
}

// DefaultImportOptions returns the options the renderer was tuned for.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		TextureBits:         DefaultTextureBits,
		StripMipmapFilters:  true,
		MaxJoints:           gpu.MaxJoints,
		DuplicateAnimations: DuplicateError,
	}
}

func (o ImportOptions) maxJoints() int {
	if o.MaxJoints <= 0 || o.MaxJoints > gpu.MaxJoints {
		return gpu.MaxJoints
	}
	return o.MaxJoints
}
