package sinklog

//nolint:revive // Pointless to comment the colors.
const (
	// ANSI color codes for terminal output.

	// Regular colors.

	Red     = "\x1b[31m"
	Green   = "\x1b[32m"
	Yellow  = "\x1b[33m"
	Blue    = "\x1b[34m"
	Magenta = "\x1b[35m"
	Cyan    = "\x1b[36m"
	White   = "\x1b[37m"

	// Bold colors.

	BoldRed    = "\x1b[31;1m"
	BoldYellow = "\x1b[33;1m"
	BoldCyan   = "\x1b[36;1m"

	// Reset resets the terminal's color settings.
	Reset = "\x1b[0m"
)

// DefaultCategoryColors maps each category bit to the ANSI color used by the
// console sink. Errors are bold red so they stand out from everything else.
func DefaultCategoryColors() map[Category]string {
	return map[Category]string{
		CategoryError:       BoldRed,
		CategoryWarning:     BoldYellow,
		CategoryInformation: Green,
		CategoryDebug:       Cyan,
		CategoryProtocol:    Blue,
		CategoryTrace:       White,
		CategoryPerformance: Magenta,
		CategorySecurity:    BoldCyan,
	}
}

// ColorFor returns the color of the event's dominant category, or "" when the
// category has no color.
func ColorFor(colors map[Category]string, category Category) string {
	return colors[category.Dominant()]
}
