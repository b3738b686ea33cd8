// Package answer builds prose answers from ranked retrieval results via an
// external generation provider, with an extractive fallback.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Generator produces text from a prompt via an external provider.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	defaultGenerateTimeout = 10 * time.Second

	// Extractive fallback uses the top chunks, each cut to a short excerpt.
	fallbackChunkLimit = 3
	fallbackExcerptLen = 150
)

// Synthesizer builds an answer from the question and the ranked chunks.
// Generation failures of any kind degrade to an extractive excerpt; sources
// are populated either way so the caller can always see what the answer is
// based on.
type Synthesizer struct {
	generator Generator // nil when no credential is configured
	timeout   time.Duration
	logger    *zap.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithLogger sets the logger used for degraded-path events.
func WithLogger(l *zap.Logger) SynthesizerOption {
	return func(s *Synthesizer) { s.logger = l }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) SynthesizerOption {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSynthesizer creates a synthesizer. generator may be nil, in which case
// every answer uses the extractive fallback.
func NewSynthesizer(generator Generator, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		generator: generator,
		timeout:   defaultGenerateTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether a generation provider is configured.
func (s *Synthesizer) Ready() bool {
	return s.generator != nil
}

// Synthesize builds an AnswerPackage for the question from the ranked results.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []models.RetrievalResult) *models.AnswerPackage {
	pkg := &models.AnswerPackage{
		Sources:     results,
		SourceCount: len(results),
	}
	if pkg.Sources == nil {
		pkg.Sources = []models.RetrievalResult{}
	}
	if len(results) == 0 {
		pkg.Answer = "No relevant documents found to answer your question."
		pkg.SynthesisMethod = models.SynthesisFallback
		return pkg
	}
	if s.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		text, err := s.generator.Generate(genCtx, buildPrompt(question, results))
		if err == nil && strings.TrimSpace(text) != "" {
			pkg.Answer = text
			pkg.SynthesisMethod = models.SynthesisGenerated
			return pkg
		}
		s.logger.Warn("generation failed, using extractive fallback", zap.Error(err))
	}
	pkg.Answer = extractiveAnswer(results)
	pkg.SynthesisMethod = models.SynthesisFallback
	return pkg
}

// buildPrompt embeds the ranked chunk texts and the question into the
// generation prompt, in rank order.
func buildPrompt(question string, results []models.RetrievalResult) string {
	var context strings.Builder
	for _, res := range results {
		context.WriteString("- ")
		context.WriteString(res.Text)
		context.WriteByte('\n')
	}
	return fmt.Sprintf(`Based on the following documents, answer the user's question clearly and concisely.

Documents:
%s
User Question: %s

Please provide a direct, helpful answer.`, context.String(), question)
}

// extractiveAnswer concatenates excerpts of the top chunks in rank order.
func extractiveAnswer(results []models.RetrievalResult) string {
	top := results
	if len(top) > fallbackChunkLimit {
		top = top[:fallbackChunkLimit]
	}
	parts := make([]string, 0, len(top))
	for _, res := range top {
		text := strings.TrimSpace(res.Text)
		if text == "" {
			continue
		}
		parts = append(parts, utils.Truncate(text, fallbackExcerptLen))
	}
	if len(parts) == 0 {
		return "Unable to generate answer from the provided documents."
	}
	return "Based on the documents:\n\n" + strings.Join(parts, "\n\n")
}
