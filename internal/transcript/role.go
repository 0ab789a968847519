package transcript

import "strings"

// Role is the coarse speaker classification used to route a line to a
// track and a voice.
type Role string

const (
	RolePlayByPlay Role = "PlayByPlay"
	RoleColor      Role = "Color"
)

// Classify buckets a free-text speaker label into a role by case-insensitive
// substring match. Anything that is neither color nor play commentary falls
// back to play-by-play; rosters with more than two logical roles must be
// pre-mapped by the caller.
func Classify(speaker string) Role {
	s := strings.ToLower(speaker)
	switch {
	case strings.Contains(s, "color"):
		return RoleColor
	case strings.Contains(s, "play"):
		return RolePlayByPlay
	default:
		return RolePlayByPlay
	}
}
