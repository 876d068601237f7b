package domain

import (
	"errors"
	"slices"
)

// DefaultMinUsableLength is the shortest leftover in millimetres kept as a remainder
const DefaultMinUsableLength = 100

// DefaultStandardLengths are the stock lengths new rails are bought in
var DefaultStandardLengths = []int{1000, 2000, 3000, 6000}

// ErrInvalidSettings is returned for unusable planner settings
var ErrInvalidSettings = errors.New("invalid planner settings: min usable length and standard lengths must be positive")

// PlannerSettings is the single threshold and stock configuration shared by
// the allocation engine, grouped cutting and the inventory layer
type PlannerSettings struct {
	MinUsableLength int   `json:"minUsableLength"`
	StandardLengths []int `json:"standardLengths"`
}

// DefaultPlannerSettings returns the workshop defaults
func DefaultPlannerSettings() PlannerSettings {
	return PlannerSettings{
		MinUsableLength: DefaultMinUsableLength,
		StandardLengths: slices.Clone(DefaultStandardLengths),
	}
}

// Normalized fills the fields a zero-value PlannerSettings leaves unset
// with defaults and sorts the standard lengths ascending without
// duplicates. Loaded settings are checked with Validate first, which
// rejects a zero threshold.
func (s PlannerSettings) Normalized() PlannerSettings {
	out := PlannerSettings{
		MinUsableLength: s.MinUsableLength,
		StandardLengths: slices.Clone(s.StandardLengths),
	}
	if out.MinUsableLength <= 0 {
		out.MinUsableLength = DefaultMinUsableLength
	}
	if len(out.StandardLengths) == 0 {
		out.StandardLengths = slices.Clone(DefaultStandardLengths)
	}
	slices.Sort(out.StandardLengths)
	out.StandardLengths = slices.Compact(out.StandardLengths)
	return out
}

// Validate rejects non-positive thresholds and stock lengths
func (s PlannerSettings) Validate() error {
	if s.MinUsableLength <= 0 {
		return ErrInvalidSettings
	}
	for _, l := range s.StandardLengths {
		if l <= 0 {
			return ErrInvalidSettings
		}
	}
	return nil
}

// IsUsable reports whether a leftover is long enough to keep as a remainder
func (s PlannerSettings) IsUsable(length int) bool {
	return length > 0 && length >= s.MinUsableLength
}

// Classify splits a leftover into its remainder and waste parts. At most
// one of the two is nonzero.
func (s PlannerSettings) Classify(leftover int) (remainder, waste int) {
	if leftover <= 0 {
		return 0, 0
	}
	if s.IsUsable(leftover) {
		return leftover, 0
	}
	return 0, leftover
}

// StandardLengthFor returns the smallest standard length that holds length
func (s PlannerSettings) StandardLengthFor(length int) (int, bool) {
	for _, l := range s.StandardLengths {
		if l >= length {
			return l, true
		}
	}
	return 0, false
}

// LargestStandardLength returns the longest stock length, 0 when none are configured
func (s PlannerSettings) LargestStandardLength() int {
	if len(s.StandardLengths) == 0 {
		return 0
	}
	return slices.Max(s.StandardLengths)
}
