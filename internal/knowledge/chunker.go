package knowledge

import (
	"strings"
	"unicode/utf8"
)

// ChunkerConfig configures the text chunker.
type ChunkerConfig struct {
	ChunkSize    int // target chunk size in characters
	ChunkOverlap int // characters carried over between chunks
}

// DefaultChunkerConfig suits short coaching guideline sections.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize:    800,
		ChunkOverlap: 80,
	}
}

// separators are tried in order: paragraphs, lines, sentences, words.
var separators = []string{"\n\n", "\n", ". ", " "}

// ChunkText splits text into overlapping chunks, preferring paragraph
// boundaries and falling back to smaller separators.
func ChunkText(text string, config ChunkerConfig) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkerConfig().ChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = 0
	}
	if utf8.RuneCountInString(text) <= config.ChunkSize {
		return []string{text}
	}
	return recursiveSplit(text, separators, config.ChunkSize, config.ChunkOverlap)
}

func recursiveSplit(text string, seps []string, chunkSize, overlap int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	var segments []string
	usedSep := ""
	rest := seps
	for i, sep := range seps {
		if parts := strings.Split(text, sep); len(parts) > 1 {
			segments = parts
			usedSep = sep
			rest = seps[i+1:]
			break
		}
	}
	if segments == nil {
		return splitByRunes(text, chunkSize)
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, seg := range segments {
		// oversized segments are split further with the next separator
		if utf8.RuneCountInString(seg) > chunkSize {
			flush()
			chunks = append(chunks, recursiveSplit(seg, rest, chunkSize, overlap)...)
			continue
		}

		if current.Len() > 0 && utf8.RuneCountInString(current.String()+usedSep+seg) > chunkSize {
			tail := overlapTail(current.String(), overlap)
			flush()
			if tail != "" && utf8.RuneCountInString(tail+usedSep+seg) <= chunkSize {
				current.WriteString(tail)
				current.WriteString(usedSep)
			}
		} else if current.Len() > 0 {
			current.WriteString(usedSep)
		}
		current.WriteString(seg)
	}
	flush()
	return chunks
}

func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

func splitByRunes(text string, n int) []string {
	runes := []rune(text)
	var segments []string
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}
