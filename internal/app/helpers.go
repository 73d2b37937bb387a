package app

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// humanizeDuration renders d in its largest whole unit, e.g. "10m" or "2h".
func humanizeDuration(d time.Duration) string {
	switch {
	case d >= day:
		return fmt.Sprintf("%dd", d/day)
	case d >= time.Hour:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
