package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ResponseSchema describes the expected JSON shape for structured
// completions. Providers translate it to their native schema format.
type ResponseSchema struct {
	Type        string                     // "object", "array", "string", "number", "integer", "boolean"
	Description string                     // Optional hint for the model
	Properties  map[string]*ResponseSchema // For "object"
	Items       *ResponseSchema            // For "array"
	Required    []string                   // For "object"
}

// LLMService defines the interface for language model operations.
// Implementations wrap cloud APIs (Gemini, Claude) and handle
// rate limiting and retry internally.
type LLMService interface {
	// Chat generates a completion response based on the conversation
	// history. The messages slice should contain the full conversation
	// context including system prompts.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStructured generates a completion constrained to the given
	// JSON schema and returns the raw JSON text.
	ChatStructured(ctx context.Context, messages []Message, schema *ResponseSchema) (string, error)

	// ProviderName returns the provider identifier ("gemini" or "claude")
	ProviderName() string

	// Close releases provider resources
	Close() error
}
