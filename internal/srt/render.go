package srt

import (
	"fmt"
	"strings"
)

// Render serializes cues into SRT text: numbered blocks separated by one
// blank line, with no trailing blank line after the final block. An empty cue
// slice yields an empty string.
func Render(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&b, "%d\n", cue.Index)
		fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(cue.Start), FormatTimestamp(cue.End))
		b.WriteString(cue.Text)
		b.WriteString("\n")
		if i < len(cues)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
