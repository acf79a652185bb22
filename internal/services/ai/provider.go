package ai

import (
	"context"
)

// Message is one chat message sent to the model provider. When ImageURL is
// set the provider must send a multi-part (text + image) user message.
type Message struct {
	Role     string `json:"role"` // "system" or "user"
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// ChatRequest is a provider-agnostic chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	JSONMode    bool      `json:"json_mode"`
}

// ChatCompletion is the normalized provider response.
type ChatCompletion struct {
	Content     string `json:"content"`
	TotalTokens int    `json:"total_tokens"`
}

// ModelProvider is the chat-completion collaborator the gateway executes
// against. Implementations must honor ctx cancellation.
type ModelProvider interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatCompletion, error)
}

// ProviderFactory creates a model provider from a config map.
type ProviderFactory func(config map[string]string) (ModelProvider, error)

// ProviderRegistry stores available model providers by name.
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory.
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name.
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (ModelProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "model provider not found: " + e.Name
}
