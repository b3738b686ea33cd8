// Package chunker splits extracted text into overlapping fixed-size segments.
package chunker

import (
	"fmt"
	"strings"
)

// Segment is one chunk of text with its position within the source document.
// Indices are contiguous from 0 for the segments that survive filtering.
type Segment struct {
	Index int
	Text  string
}

// Chunker splits text into overlapping character windows. Chunking is
// deterministic: the same text and settings always yield the same segments.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Overlap must be non-negative and strictly smaller
// than size; violating that is a configuration error caught at startup.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap cannot be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into windows of size characters, each window starting
// overlap characters before the previous one ended. The final window is
// truncated to the remaining text. Whitespace-only windows are dropped and
// the surviving segments are renumbered contiguously from 0.
func (c *Chunker) Chunk(text string) []Segment {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	stride := c.size - c.overlap
	segments := make([]Segment, 0, (len(runes)+stride-1)/stride)
	index := 0
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			segments = append(segments, Segment{Index: index, Text: window})
			index++
		}
		if end >= len(runes) {
			break
		}
	}
	return segments
}
