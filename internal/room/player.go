// Package room implements per-room state: players, host identity, room
// configuration, and the active game instance.
package room

// PlayerID is monotonic and non-zero, unique within a single room only.
type PlayerID uint32

// Color is an RGB avatar color.
type Color struct {
	R, G, B uint8
}

// Palette is the built-in default avatar palette.
var Palette = []Color{
	{255, 87, 87},   // Red
	{78, 205, 196},  // Teal
	{255, 195, 18},  // Yellow
	{130, 88, 255},  // Purple
	{46, 213, 115},  // Green
	{255, 148, 77},  // Orange
	{83, 152, 255},  // Blue
	{255, 107, 175}, // Pink
}

// ColorAt returns the palette color at index, wrapping via modulo. An empty
// palette falls back to the first built-in color.
func ColorAt(palette []Color, index int) Color {
	if len(palette) == 0 {
		return Palette[0]
	}
	return palette[((index%len(palette))+len(palette))%len(palette)]
}

// Player is a room participant.
type Player struct {
	ID          PlayerID
	DisplayName string
	Color       Color
	IsHost      bool
	IsSpectator bool
	IsBot       bool

	// Connected is false while the player is within its disconnect grace
	// window, waiting for a session-token reconnect.
	Connected bool
}
