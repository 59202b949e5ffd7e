package ids

import "github.com/segmentio/ksuid"

// New returns a time-ordered, globally unique identifier for events and tasks.
func New() string {
	return ksuid.New().String()
}
