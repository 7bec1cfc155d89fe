package llms

import (
	"fmt"

	"github.com/wayfarer-ai/wayfarer/pkg/config"
	"github.com/wayfarer-ai/wayfarer/pkg/registry"
)

// LLMRegistry holds named providers constructed from configuration.
type LLMRegistry struct {
	*registry.BaseRegistry[Provider]
}

func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

func (r *LLMRegistry) RegisterLLM(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("LLM name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("LLM provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateFromConfig constructs a provider for the configured type and
// registers it under the given name.
func (r *LLMRegistry) CreateFromConfig(name string, cfg *config.LLMProviderConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("LLM name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	var provider Provider
	var err error

	switch ProviderType(cfg.Type) {
	case ProviderQwen:
		provider, err = NewQwenProviderFromConfig(cfg)
	case ProviderOpenAI:
		provider, err = NewOpenAIProviderFromConfig(cfg)
	case ProviderAnthropic:
		provider, err = NewAnthropicProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM type: %s (supported: qwen, openai, anthropic)", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	if err := r.RegisterLLM(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register LLM: %w", err)
	}

	return provider, nil
}

func (r *LLMRegistry) GetLLM(name string) (Provider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM provider '%s' not found", name)
	}
	return provider, nil
}
