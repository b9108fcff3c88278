package llm

import (
	"fmt"
	"sort"
	"strings"
)

type constructor func(Config) (Provider, error)

// providers maps a configured name (lowercased) to its constructor
var providers = map[string]constructor{
	"openai":     wrap(NewOpenAIProvider),
	"anthropic":  wrap(NewAnthropicProvider),
	"claude":     wrap(NewAnthropicProvider),
	"ollama":     wrap(NewOllamaProvider),
	"perplexity": wrap(NewPerplexityProvider),
}

// wrap keeps a failed constructor from leaking a typed nil Provider
func wrap[P Provider](fn func(Config) (P, error)) constructor {
	return func(c Config) (Provider, error) {
		p, err := fn(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// NewProvider builds the provider named by config.Provider. An empty name
// means the upstream is disabled and returns nil, nil.
func NewProvider(config Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(config.Provider))
	if name == "" {
		return nil, nil
	}

	build, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: %s)", config.Provider, strings.Join(Supported(), ", "))
	}
	return build(config)
}

// Supported lists the accepted provider names
func Supported() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
