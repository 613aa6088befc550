package summarizer

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// systemPrompt frames every summary request.
const systemPrompt = "You are a precise technical writer who summarizes documents faithfully without adding information."

// ChatCompleter adapts an eino chat model to the Completer interface.
type ChatCompleter struct {
	model    model.BaseChatModel
	handlers []callbacks.Handler
}

// NewChatCompleter wraps m. Optional callback handlers (e.g. Langfuse
// tracing) are attached to every request.
func NewChatCompleter(m model.BaseChatModel, handlers ...callbacks.Handler) (*ChatCompleter, error) {
	if m == nil {
		return nil, fmt.Errorf("summarizer: chat model must not be nil")
	}
	return &ChatCompleter{model: m, handlers: handlers}, nil
}

// Complete sends prompt as a single user turn and returns the reply content.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if len(c.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      "pdfrag-summarizer",
			Type:      "ChatModel",
			Component: components.ComponentOfChatModel,
		}, c.handlers...)
	}

	msg, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if msg == nil || msg.Content == "" {
		return "", fmt.Errorf("chat model returned an empty reply")
	}
	return msg.Content, nil
}
