package sinklog

import (
	"math/bits"
	"strings"

	"github.com/hyp3rd/ewrap"
)

// Category is a bit-flag set describing the severity or kind of a log event.
// Categories combine with bitwise OR; a sink receives an event only when the
// event category and the sink's enabled categories share at least one bit.
type Category uint32

const (
	// CategoryNone disables every category.
	CategoryNone Category = 0
	// CategoryError marks failures that need attention.
	CategoryError Category = 1 << (iota - 1)
	// CategoryWarning marks unexpected but recoverable conditions.
	CategoryWarning
	// CategoryInformation marks general operational messages.
	CategoryInformation
	// CategoryDebug marks diagnostic detail.
	CategoryDebug
	// CategoryProtocol marks wire-level traffic (requests, responses, frames).
	CategoryProtocol
	// CategoryTrace marks very verbose execution tracing.
	CategoryTrace
	// CategoryPerformance marks timing and throughput measurements.
	CategoryPerformance
	// CategorySecurity marks authentication and authorization events.
	CategorySecurity

	// CategoryAll enables every category.
	CategoryAll Category = ^Category(0)
	// CategoryCustom covers every bit above the predefined categories. Events
	// carrying only such bits are labeled "Custom".
	CategoryCustom Category = ^Category(0xFF)
)

//nolint:gochecknoglobals // fixed lookup table.
var categoryLabels = []struct {
	bit   Category
	label string
}{
	{CategoryError, "Error"},
	{CategoryWarning, "Warning"},
	{CategoryInformation, "Information"},
	{CategoryDebug, "Debug"},
	{CategoryProtocol, "Protocol"},
	{CategoryTrace, "Trace"},
	{CategoryPerformance, "Performance"},
	{CategorySecurity, "Security"},
}

// Has reports whether c and other share at least one bit.
func (c Category) Has(other Category) bool {
	return c&other != 0
}

// Dominant returns the highest-priority bit set in c. Lower bits outrank
// higher ones, so Error wins over Warning, which wins over Information.
func (c Category) Dominant() Category {
	if c == CategoryNone {
		return CategoryNone
	}

	return Category(1) << bits.TrailingZeros32(uint32(c))
}

// Label returns the human-readable type label of the dominant bit.
func (c Category) Label() string {
	dominant := c.Dominant()
	if dominant == CategoryNone {
		return "None"
	}

	for _, entry := range categoryLabels {
		if entry.bit == dominant {
			return entry.label
		}
	}

	return "Custom"
}

// String renders every known bit joined by "|".
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "None"
	case CategoryAll:
		return "All"
	}

	parts := make([]string, 0, len(categoryLabels))

	for _, entry := range categoryLabels {
		if c&entry.bit != 0 {
			parts = append(parts, entry.label)
		}
	}

	if len(parts) == 0 {
		return "Custom"
	}

	return strings.Join(parts, "|")
}

// CategoryFromLabel maps a type label back to its category bit. "None"
// yields CategoryNone and "Custom" yields CategoryCustom, so every label
// produced by Label is accepted.
func CategoryFromLabel(label string) (Category, error) {
	for _, entry := range categoryLabels {
		if strings.EqualFold(entry.label, label) {
			return entry.bit, nil
		}
	}

	switch {
	case strings.EqualFold(label, "None"):
		return CategoryNone, nil
	case strings.EqualFold(label, "Custom"):
		return CategoryCustom, nil
	}

	return CategoryNone, ewrap.Wrapf(ErrInvalidCategory, "unknown type label").
		WithMetadata("label", label)
}

// ParseCategory parses a "|" or "," separated list of category names, for
// example "error|warning". The names "all" and "none" are accepted, and "warn"
// and "info" are aliases.
func ParseCategory(value string) (Category, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return CategoryNone, nil
	}

	result := CategoryNone

	for field := range strings.FieldsFuncSeq(value, func(r rune) bool { return r == '|' || r == ',' }) {
		name := strings.ToLower(strings.TrimSpace(field))

		switch name {
		case "":
			continue
		case "all":
			return CategoryAll, nil
		case "none":
			continue
		case "warn":
			name = "warning"
		case "info":
			name = "information"
		}

		bit, err := CategoryFromLabel(name)
		if err != nil {
			return CategoryNone, err
		}

		result |= bit
	}

	return result, nil
}
