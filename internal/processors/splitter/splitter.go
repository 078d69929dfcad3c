// Package splitter provides recursive character text splitting.
//
// Text is split on an ordered list of separator fallbacks: paragraph
// breaks first, then line breaks, then spaces, then a hard character cut.
// Adjacent chunks share an overlap region so context is not lost at
// chunk boundaries.
package splitter

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 4000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// MinChunkLength is the minimum chunk content length. Shorter chunks
// carry too little signal to be worth embedding and are discarded.
const MinChunkLength = 10

// defaultSeparators is the fallback order. The empty string means a hard
// cut at the chunk size.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text into overlapping chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator fallback list.
func WithSeparators(separators []string) Option {
	return func(s *Splitter) {
		if len(separators) > 0 {
			s.separators = separators
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split divides text into chunks. Chunks at or below MinChunkLength are
// discarded.
func (s *Splitter) Split(text string) []string {
	raw := s.splitText(text, s.separators)

	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		if len(c) > MinChunkLength {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// splitText splits on the first separator present in the text, merging
// the pieces back into chunks and recursing with the remaining separators
// on pieces that are still too long.
func (s *Splitter) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return s.hardCut(text)
	}

	var final []string
	var fitting []string
	for _, piece := range strings.Split(text, separator) {
		if len(piece) < s.chunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			final = append(final, s.mergeSplits(fitting, separator)...)
			fitting = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, remaining)...)
		}
	}
	if len(fitting) > 0 {
		final = append(final, s.mergeSplits(fitting, separator)...)
	}
	return final
}

// hardCut slices text into fixed windows, duplicating the overlap region
// between adjacent windows.
func (s *Splitter) hardCut(text string) []string {
	if text == "" {
		return nil
	}

	step := s.chunkSize - s.overlap
	chunks := make([]string, 0, len(text)/step+1)

	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// mergeSplits greedily packs pieces into chunks up to the chunk size,
// carrying tail pieces forward into the next chunk as overlap.
func (s *Splitter) mergeSplits(splits []string, separator string) []string {
	sepLen := len(separator)

	var docs []string
	var current []string
	total := 0

	for _, split := range splits {
		l := len(split)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}

		if total+l+extra > s.chunkSize && len(current) > 0 {
			doc := strings.TrimSpace(strings.Join(current, separator))
			if doc != "" {
				docs = append(docs, doc)
			}
			// Drop leading pieces until the carried-over tail fits the
			// overlap budget and leaves room for the incoming piece.
			for len(current) > 0 &&
				(total > s.overlap || (total+l+sepLen > s.chunkSize && total > 0)) {
				removed := len(current[0])
				if len(current) > 1 {
					removed += sepLen
				}
				total -= removed
				current = current[1:]
			}
		}

		if len(current) > 0 {
			total += sepLen
		}
		total += l
		current = append(current, split)
	}

	doc := strings.TrimSpace(strings.Join(current, separator))
	if doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
