package challenge

import (
	"time"

	"github.com/notegate/notegate/lib/music"
)

// Solution is the server-held answer for one session's outstanding challenge.
// At most one exists per session; it is destroyed by the first verify call
// against it, correct or not.
type Solution struct {
	ID       string         `json:"id"`       // UUID identifying the challenge
	Notes    music.Sequence `json:"notes"`    // The melody the user has to reproduce
	IssuedAt time.Time      `json:"issuedAt"` // When the challenge was issued
}
