package tui

import (
	"fmt"
	"time"
)

// FormatLatency renders d as "X.Xms" below a second and "X.Xs" above.
func FormatLatency(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatRepository names the chat target shown in the header.
func FormatRepository(repo *string) string {
	if repo == nil || *repo == "" {
		return "no repository"
	}
	return *repo
}
