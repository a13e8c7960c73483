package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/dailyrag/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

// recordingModel captures the messages it receives.
type recordingModel struct {
	messages []llms.MessageContent
	resp     *llms.ContentResponse
	err      error
}

func (r *recordingModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	r.messages = messages
	return r.resp, r.err
}

func (r *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

func TestCompleter_Complete(t *testing.T) {
	c := newCompleterWithModel(fake.NewFakeLLM([]string{"The topic is remembrance."}))

	reply, err := c.Complete(context.Background(), "Question: What is the topic?")
	require.NoError(t, err)
	assert.Equal(t, "The topic is remembrance.", reply)
}

func TestCompleter_SendsSingleUserMessage(t *testing.T) {
	model := &recordingModel{
		resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}},
	}
	c := newCompleterWithModel(model)

	_, err := c.Complete(context.Background(), "Question: q\n\nContext: c")
	require.NoError(t, err)

	require.Len(t, model.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
	require.Len(t, model.messages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "Question: q\n\nContext: c"}, model.messages[0].Parts[0])
}

func TestCompleter_Errors(t *testing.T) {
	t.Run("model error propagates", func(t *testing.T) {
		boom := errors.New("connection refused")
		c := newCompleterWithModel(&recordingModel{err: boom})

		_, err := c.Complete(context.Background(), "prompt")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no choices", func(t *testing.T) {
		c := newCompleterWithModel(&recordingModel{resp: &llms.ContentResponse{}})

		_, err := c.Complete(context.Background(), "prompt")
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewCompleter_InvalidConfig(t *testing.T) {
	_, err := NewCompleter(&ai.Config{})
	assert.Error(t, err)
}
