// Package splitter implements the chunking strategies used to break
// loaded documents into pieces small enough to embed or feed to an
// LlmProvider: character, token (approximate), sentence, and recursive
// splitting, each sharing the same chunk-size/overlap contract.
//
// Grounded in original_source/core/src/splitter/*.rs for the four
// strategy names and their overlap semantics; expressed in this
// module's Config-as-struct-with-functional-defaults idiom (nodeexec.Config,
// retry.Policy) rather than the teacher's generic Engine[S], since text
// splitting has no node-graph analog in graph/.
package splitter

import (
	"strings"

	"github.com/ravel-run/agentgraph/errs"
)

// Splitter chunks text according to a strategy-specific rule.
type Splitter interface {
	Split(text string) ([]string, error)
}

// Config bounds every strategy: ChunkSize is the target chunk length
// (runes for Character/Recursive, approximate tokens for Token,
// sentences for Sentence), ChunkOverlap is how much trailing context
// carries into the next chunk.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return errs.Validation("splitter: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return errs.Validation("splitter: chunk_overlap must be in [0, chunk_size), got %d (chunk_size %d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// NewByStrategy constructs the named strategy, one of "character",
// "token", "sentence", "recursive".
func NewByStrategy(strategy string, cfg Config) (Splitter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch strategy {
	case "character":
		return CharacterSplitter{cfg: cfg}, nil
	case "token":
		return TokenSplitter{cfg: cfg}, nil
	case "sentence":
		return SentenceSplitter{cfg: cfg}, nil
	case "recursive":
		return RecursiveSplitter{cfg: cfg, separators: defaultSeparators}, nil
	default:
		return nil, errs.Validation("splitter: unknown strategy %q", strategy)
	}
}

// windowedChunks slices a sequence of units (runes, tokens, sentences)
// into overlapping windows of cfg.ChunkSize, advancing by
// (ChunkSize - ChunkOverlap) each step. Shared by every strategy below
// so the windowing/overlap math has exactly one implementation.
func windowedChunks[T any](units []T, cfg Config, join func([]T) string) []string {
	if len(units) == 0 {
		return nil
	}
	stride := cfg.ChunkSize - cfg.ChunkOverlap
	var chunks []string
	for start := 0; start < len(units); start += stride {
		end := start + cfg.ChunkSize
		if end > len(units) {
			end = len(units)
		}
		chunks = append(chunks, join(units[start:end]))
		if end == len(units) {
			break
		}
	}
	return chunks
}

// CharacterSplitter windows over runes.
type CharacterSplitter struct{ cfg Config }

func (s CharacterSplitter) Split(text string) ([]string, error) {
	runes := []rune(text)
	return windowedChunks(runes, s.cfg, func(r []rune) string { return string(r) }), nil
}

// TokenSplitter windows over whitespace-delimited tokens — an
// approximation of model tokenization, not a vendor tokenizer, since the
// core depends on no vendor-specific tokenizer library.
type TokenSplitter struct{ cfg Config }

func (s TokenSplitter) Split(text string) ([]string, error) {
	tokens := strings.Fields(text)
	return windowedChunks(tokens, s.cfg, func(t []string) string { return strings.Join(t, " ") }), nil
}

// SentenceSplitter windows over sentences, split on ., !, ? followed by
// whitespace or end of string.
type SentenceSplitter struct{ cfg Config }

func (s SentenceSplitter) Split(text string) ([]string, error) {
	sentences := splitSentences(text)
	return windowedChunks(sentences, s.cfg, func(ss []string) string { return strings.Join(ss, " ") }), nil
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		isBoundary := r == '.' || r == '!' || r == '?'
		atEnd := i == len(runes)-1
		nextIsSpace := !atEnd && (runes[i+1] == ' ' || runes[i+1] == '\n')
		if isBoundary && (atEnd || nextIsSpace) {
			if trimmed := strings.TrimSpace(b.String()); trimmed != "" {
				sentences = append(sentences, trimmed)
			}
			b.Reset()
		}
	}
	if trimmed := strings.TrimSpace(b.String()); trimmed != "" {
		sentences = append(sentences, trimmed)
	}
	return sentences
}

// defaultSeparators is the recursive splitter's fallback order: try
// paragraph breaks first, then lines, then words, then raw characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter tries each separator in order, recursing into any
// piece still longer than ChunkSize using the next, finer separator.
type RecursiveSplitter struct {
	cfg        Config
	separators []string
}

func (s RecursiveSplitter) Split(text string) ([]string, error) {
	pieces := s.splitWith(text, s.separators)
	return mergeWithOverlap(pieces, s.cfg), nil
}

func (s RecursiveSplitter) splitWith(text string, seps []string) []string {
	if len([]rune(text)) <= s.cfg.ChunkSize || len(seps) == 0 {
		return []string{text}
	}
	sep := seps[0]
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, sep)
	}

	var out []string
	for _, part := range parts {
		if len([]rune(part)) > s.cfg.ChunkSize {
			out = append(out, s.splitWith(part, seps[1:])...)
		} else if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeWithOverlap packs small pieces back together, joined by a space, up
// to ChunkSize runes, carrying ChunkOverlap runes of trailing context into
// the next chunk when that context still fits beside the next piece.
func mergeWithOverlap(pieces []string, cfg Config) []string {
	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		pieceLen := len([]rune(piece))
		if current.Len() > 0 && len([]rune(current.String()))+1+pieceLen > cfg.ChunkSize {
			chunks = append(chunks, current.String())
			carry := lastRunes(current.String(), cfg.ChunkOverlap)
			current.Reset()
			if carry != "" && len([]rune(carry))+1+pieceLen <= cfg.ChunkSize {
				current.WriteString(carry)
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	return string(r[len(r)-n:])
}
