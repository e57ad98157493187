package processors

import (
	openai "github.com/sashabaranov/go-openai"

	"uploadAI/config"
)

// NewOpenAIClient builds the shared API client, honoring a custom base URL for
// OpenAI-compatible gateways.
func NewOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
