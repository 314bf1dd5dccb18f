package history

import (
	"fmt"
	"time"
)

// Entry is one finished playback session.
type Entry struct {
	URI      string        `json:"uri" jsonschema:"description=URI handed to the playback engine."`
	Position time.Duration `json:"position" jsonschema:"description=Last known position in nanoseconds."`
	Duration time.Duration `json:"duration,omitempty" jsonschema:"description=Media duration in nanoseconds, absent when unknown."`

	// Outcome is how the session ended: eos, error, quit, input-closed or canceled.
	Outcome  string    `json:"outcome" jsonschema:"enum=eos,enum=error,enum=quit,enum=input-closed,enum=canceled,enum=closed"`
	PlayedAt time.Time `json:"played_at" jsonschema:"description=When the session ended."`
}

// Progress is the watched fraction in [0, 1], or 0 when the duration is unknown.
func (e Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return min(float64(e.Position)/float64(e.Duration), 1)
}

func (e Entry) String() string {
	if e.Duration > 0 {
		return fmt.Sprintf("%s (%s / %s, %s)", e.URI, e.Position.Truncate(time.Second), e.Duration.Truncate(time.Second), e.Outcome)
	}
	return fmt.Sprintf("%s (%s, %s)", e.URI, e.Position.Truncate(time.Second), e.Outcome)
}
