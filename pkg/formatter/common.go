package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// printTimestamp prints the fetch timestamp and duration
func printTimestamp(w io.Writer, startTime time.Time, duration time.Duration) {
	// Format the fetch time
	timeStr := startTime.Format("2006-01-02 15:04:05")

	// Format the duration
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	fmt.Fprintf(w, "Fetch completed at %s (took %s)\n", timeStr, durationStr)
}

// attrString returns a string attribute, or "-" when it is absent or not a string
func attrString(attrs map[string]json.RawMessage, key string) string {
	raw, ok := attrs[key]
	if !ok {
		return "-"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "-"
	}
	return s
}

// GetPricingMarker returns the marker shown in the PRICING column
func GetPricingMarker(source string) string {
	switch source {
	case "API":
		return "API"
	case "Cache":
		return "CACHE"
	case "N/A":
		return "N/A"
	default:
		return "-"
	}
}
