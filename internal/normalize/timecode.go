package normalize

import "fmt"

const (
	// DefaultThumbnail is used when a provider payload carries no artwork.
	DefaultThumbnail = "https://placehold.co/512x512.png"
	// UnknownArtist is used when a provider payload names no artist.
	UnknownArtist = "Unknown Artist"
)

// Timecode renders a millisecond duration as "MM:SS", or "HH:MM:SS" once it
// reaches an hour. Negative durations clamp to zero.
func Timecode(ms int64) string {
	if ms < 0 {
		ms = 0
	}

	total := ms / 1000
	seconds := total % 60
	minutes := (total / 60) % 60
	hours := total / 3600

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
