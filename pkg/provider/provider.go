package provider

import (
	"context"
)

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
}

func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

type CompleteOptions struct {
	Temperature *float32
	MaxTokens   *int
}

type Completion struct {
	ID    string
	Model string

	Message *Message

	Usage *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type Completer interface {
	Complete(ctx context.Context, messages []Message, options *CompleteOptions) (*Completion, error)
}

type Embedding struct {
	Model string

	Embeddings [][]float32
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) (*Embedding, error)
}
