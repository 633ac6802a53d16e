package srt

import "strings"

// ItemType distinguishes timed words from attached punctuation.
type ItemType string

const (
	ItemPronunciation ItemType = "pronunciation"
	ItemPunctuation   ItemType = "punctuation"
)

// Item is one entry of a word-level transcript in natural sequence order.
// Only pronunciation items carry reliable timing; punctuation items ride
// along with the preceding word.
type Item struct {
	Type      ItemType
	StartTime float64
	EndTime   float64
	Content   string
}

// Cue is one timed subtitle entry. Index is 1-based and contiguous within a
// rendered sequence.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// DefaultGapThreshold is the silence, in seconds, tolerated inside one cue.
const DefaultGapThreshold = 1.0

// cluster is the in-progress group of items merging into the next cue.
type cluster struct {
	start   float64
	lastEnd float64
	words   []string
}

func (c cluster) close(index int) Cue {
	return Cue{
		Index: index,
		Start: c.start,
		End:   c.lastEnd,
		Text:  strings.Join(c.words, " "),
	}
}

// Segment folds an ordered transcript into subtitle cues. A new cue starts
// when the silence between a pronunciation item and the previous one exceeds
// gapThreshold (strictly; a gap of exactly the threshold merges). Punctuation
// items never affect timing: they are appended to the open cluster's text,
// and a punctuation item arriving before any pronunciation is dropped.
//
// The input order is preserved as-is; items are never re-sorted. Empty input,
// or input with no pronunciation items, yields no cues.
func Segment(items []Item, gapThreshold float64) []Cue {
	var cues []Cue
	var open *cluster

	for _, item := range items {
		if item.Type != ItemPronunciation {
			if open != nil {
				open.words = append(open.words, item.Content)
			}
			continue
		}
		if open == nil {
			open = &cluster{start: item.StartTime, lastEnd: item.EndTime, words: []string{item.Content}}
			continue
		}
		if item.StartTime-open.lastEnd > gapThreshold {
			cues = append(cues, open.close(len(cues)+1))
			open = &cluster{start: item.StartTime, lastEnd: item.EndTime, words: []string{item.Content}}
			continue
		}
		open.words = append(open.words, item.Content)
		open.lastEnd = item.EndTime
	}

	if open != nil {
		cues = append(cues, open.close(len(cues)+1))
	}
	return cues
}
