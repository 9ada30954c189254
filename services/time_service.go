package services

import "time"

// CurrentTime returns the current instant in UTC. Message timestamps are
// always taken from it unless a ChatService is given another clock.
func CurrentTime() time.Time {
	return time.Now().UTC()
}
