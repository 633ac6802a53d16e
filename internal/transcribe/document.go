package transcribe

import (
	"encoding/json"
	"fmt"
	"strconv"

	"subtitler/internal/srt"
)

// Document is the transcript payload produced by the collaborator. Times are
// string-encoded decimal seconds on the wire.
type Document struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
		Items []DocumentItem `json:"items"`
	} `json:"results"`
	Status string `json:"status"`
}

// DocumentItem is one word or punctuation entry of the transcript.
type DocumentItem struct {
	Type         string `json:"type"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	Alternatives []struct {
		Confidence string `json:"confidence"`
		Content    string `json:"content"`
	} `json:"alternatives"`
}

// ParseDocument decodes a transcript payload into segmenter items, keeping
// the payload's natural item order. Pronunciation items with missing or
// unparseable timing make the payload malformed.
func ParseDocument(data []byte) ([]srt.Item, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	items := make([]srt.Item, 0, len(doc.Results.Items))
	for i, raw := range doc.Results.Items {
		if len(raw.Alternatives) == 0 {
			return nil, fmt.Errorf("transcript item %d: no alternatives", i)
		}
		item := srt.Item{Content: raw.Alternatives[0].Content}
		switch raw.Type {
		case "pronunciation":
			item.Type = srt.ItemPronunciation
			start, err := strconv.ParseFloat(raw.StartTime, 64)
			if err != nil {
				return nil, fmt.Errorf("transcript item %d: start_time %q: %w", i, raw.StartTime, err)
			}
			end, err := strconv.ParseFloat(raw.EndTime, 64)
			if err != nil {
				return nil, fmt.Errorf("transcript item %d: end_time %q: %w", i, raw.EndTime, err)
			}
			item.StartTime = start
			item.EndTime = end
		case "punctuation":
			item.Type = srt.ItemPunctuation
		default:
			return nil, fmt.Errorf("transcript item %d: unknown type %q", i, raw.Type)
		}
		items = append(items, item)
	}
	return items, nil
}
