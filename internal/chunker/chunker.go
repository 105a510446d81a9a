// Package chunker splits transcript text into bounded, overlapping segments
// suitable for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLen and DefaultOverlap are tuned for dense multi-speaker
	// transcripts: segments large enough to hold a few turns, with enough
	// overlap that a split mid-turn keeps its surrounding context.
	DefaultMaxLen  = 800
	DefaultOverlap = 200
)

// Chunk splits text into ordered segments of at most maxLen characters.
// Lengths are measured in runes, not bytes; Hangul transcripts would
// otherwise split at a third of the intended size. Lines are trimmed and
// newline-joined into a growing buffer; when a line would push the buffer
// past maxLen the buffer is flushed and the next segment is seeded with
// the trailing `overlap` runes of the flushed one, so local context
// survives a split. Every returned segment is trimmed and non-empty.
// overlap must be smaller than maxLen.
func Chunk(text string, maxLen, overlap int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if overlap < 0 || overlap >= maxLen {
		overlap = 0
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0 // runes in buf
	lastSpeaker := ""

	flush := func() string {
		out := strings.TrimSpace(buf.String())
		if out != "" {
			chunks = append(chunks, out)
		}
		buf.Reset()
		bufLen = 0
		return out
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineLen := utf8.RuneCountInString(line)

		// Track the most recent speaker turn ("사회자: ..."). Bookkeeping
		// only: a segment is still allowed to split mid-turn.
		// TODO: optionally re-anchor the post-overlap seed at lastSpeaker's
		// turn so a segment never opens with an unattributed utterance.
		if speaker, ok := speakerTag(line); ok {
			lastSpeaker = speaker
			_ = lastSpeaker
		}

		if bufLen > 0 && bufLen+1+lineLen > maxLen {
			flushed := flush()
			if runes := []rune(flushed); overlap > 0 && len(runes) > overlap {
				buf.WriteString(string(runes[len(runes)-overlap:]))
				bufLen = overlap
			}
		}
		if bufLen > 0 {
			buf.WriteString("\n")
			bufLen++
		}
		buf.WriteString(line)
		bufLen += lineLen
	}
	flush()

	return chunks
}

// speakerTag reports whether line opens a speaker turn, i.e. starts with a
// single-token label followed by a colon ("참석자: 네").
func speakerTag(line string) (string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", false
	}
	label := strings.TrimSpace(line[:idx])
	if label == "" || strings.ContainsAny(label, " \t") {
		return "", false
	}
	return label, true
}
