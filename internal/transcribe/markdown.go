package transcribe

import (
	"fmt"
	"strings"
)

// TimestampMarker opens every timestamped transcript line
const TimestampMarker = "[time:"

// Markdown renders one paragraph per segment, each prefixed with its time
// span in seconds
func Markdown(t Transcript) string {
	lines := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %.2f-%.2f]  %s", TimestampMarker, s.StartSec, s.EndSec, text))
	}
	return strings.Join(lines, "\n\n")
}

// CountTimestamped returns the number of lines carrying a timestamp
func CountTimestamped(markdown string) int {
	n := 0
	for _, line := range strings.Split(markdown, "\n") {
		if strings.Contains(line, TimestampMarker) {
			n++
		}
	}
	return n
}

// FirstTimestamped returns the first timestamped line, or ""
func FirstTimestamped(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.Contains(line, TimestampMarker) {
			return line
		}
	}
	return ""
}
