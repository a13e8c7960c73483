package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/dailyrag/ai"
	"github.com/poiesic/dailyrag/core"
	"github.com/poiesic/dailyrag/search"
)

// DefaultTopN is the number of chunks placed in the prompt context.
const DefaultTopN = 2

// ContextSeparator joins retrieved chunks into the prompt context.
const ContextSeparator = "\n\n"

// Retriever finds the chunks most similar to a query, best first.
type Retriever interface {
	FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error)
}

var _ Retriever = (*search.Searcher)(nil)

// Answer is a completed question with the context it was answered from.
type Answer struct {
	Question string
	Text     string
	Sources  []*core.SearchResult
}

// Answerer answers questions from the indexed article.
type Answerer struct {
	retriever Retriever
	completer ai.Completer
	topN      int
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithTopN sets how many chunks are used as context.
// Default is DefaultTopN.
func WithTopN(n int) Option {
	return func(a *Answerer) error {
		if n < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidTopN, n)
		}
		a.topN = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAnswerer creates an Answerer.
func NewAnswerer(retriever Retriever, completer ai.Completer, opts ...Option) (*Answerer, error) {
	if retriever == nil {
		return nil, ErrSearcherRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	a := &Answerer{
		retriever: retriever,
		completer: completer,
		topN:      DefaultTopN,
		logger:    slog.Default().With("component", "answer"),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// TopN returns the number of context chunks per question.
func (a *Answerer) TopN() int {
	return a.topN
}

// Ask answers question and returns the model's response verbatim.
func (a *Answerer) Ask(ctx context.Context, question string) (string, error) {
	ans, err := a.Answer(ctx, question)
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}

// Answer retrieves the top chunks for question, builds the prompt and
// makes a single completion call. Nothing is retried.
func (a *Answerer) Answer(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	results, err := a.retriever.FindSimilar(ctx, question, a.topN)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	prompt := BuildPrompt(question, JoinContext(results))
	a.logger.Debug("asking model", "context_chunks", len(results), "prompt_len", len(prompt))

	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	return &Answer{
		Question: question,
		Text:     text,
		Sources:  results,
	}, nil
}

// JoinContext joins chunk contents in ranked order.
func JoinContext(results []*core.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Chunk == nil {
			continue
		}
		texts = append(texts, r.Chunk.Content)
	}
	return strings.Join(texts, ContextSeparator)
}

// BuildPrompt renders the single user message sent to the model.
func BuildPrompt(question, context string) string {
	return fmt.Sprintf("Question: %s\n\nContext: %s", question, context)
}
