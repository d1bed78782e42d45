package ui

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration as a human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Hour {
		return d.Round(time.Second).String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// FormatBytes formats bytes as human-readable size
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	fbytes := float64(bytes)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", fbytes/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", fbytes/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", fbytes/KB)
	}
	return fmt.Sprintf("%d B", bytes)
}

// StatusSymbol maps a job or item state onto the marker used in CLI tables
func StatusSymbol(state string) string {
	switch state {
	case "complete", "downloaded", "present":
		return "✓"
	case "error", "failed":
		return "✗"
	case "pending":
		return "⋯"
	default:
		return "•"
	}
}
