package logger

import (
	"fmt"
	"time"
)

// Status maps error to a unified status string for logs.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Took returns rounded duration since start for compact logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds duration to the nearest millisecond for consistent logging.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// BuildRID derives a request correlation id from update/chat/user identifiers.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("u%d-c%d-s%d", updateID, chatID, userID)
}
