// Package registry maps provider kinds to adapter constructors. The kind set
// is closed; unknown kinds are configuration errors, never a plugin lookup.
package registry

import (
	"fmt"

	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/anthropic"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/gemini"
	"github.com/AZAnthonyN/GeminiTL/internal/providers/openai"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

var constructors = map[providers.Kind]func(providers.Settings) providers.Adapter{
	providers.KindGemini:    func(s providers.Settings) providers.Adapter { return gemini.New(s) },
	providers.KindOpenAI:    func(s providers.Settings) providers.Adapter { return openai.New(s) },
	providers.KindAnthropic: func(s providers.Settings) providers.Adapter { return anthropic.New(s) },
}

// New constructs the adapter for the given kind.
func New(kind providers.Kind, settings providers.Settings) (providers.Adapter, error) {
	construct, ok := constructors[kind]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "new",
			fmt.Sprintf("unknown provider kind %q", kind), nil)
	}
	return construct(settings), nil
}

// FromName parses and constructs in one step.
func FromName(name string, settings providers.Settings) (providers.Adapter, error) {
	kind, err := providers.ParseKind(name)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "parse", err.Error(), nil)
	}
	return New(kind, settings)
}
