package pipeline

import (
	"strings"
	"time"

	"github.com/stagecue/stagecue/stt"
)

// Transcript is the text output of the transcription stage.
type Transcript struct {
	Text       string
	ProducedAt time.Time
}

// transcriptText flattens a transcription result into a single line. Segment
// texts are joined in order with single spaces; when the engine returned no
// segments the top-level text is used as-is.
func transcriptText(result *stt.TranscribeResult) string {
	if result == nil {
		return ""
	}
	if len(result.Segments) == 0 {
		return strings.TrimSpace(result.Text)
	}
	parts := make([]string, 0, len(result.Segments))
	for _, segment := range result.Segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
