package receipt

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	OpenAIProvider       ProviderType = "openai"
	GitHubModelsProvider ProviderType = "github_models"
	OllamaProvider       ProviderType = "ollama"
	AzureOpenAIProvider  ProviderType = "azure_openai"
)

// GitHubModelsURL is the OpenAI-compatible endpoint of GitHub Models
const GitHubModelsURL = "https://models.inference.ai.azure.com"

// ProviderConfig selects and authenticates a vision model
type ProviderConfig struct {
	Provider ProviderType
	Model    string
	APIKey   string
	BaseURL  string
}

// defaultModels are vision-capable defaults per provider
var defaultModels = map[ProviderType]string{
	OpenAIProvider:       "gpt-4o-mini",
	GitHubModelsProvider: "gpt-4o-mini",
	OllamaProvider:       "llava",
}

// Provider is an initialized model plus how it wants images
type Provider struct {
	Type         ProviderType
	ModelName    string
	Model        Model
	BinaryImages bool
}

// NewProvider initializes the model described by cfg
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = OpenAIProvider
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}

	switch cfg.Provider {
	case OpenAIProvider:
		return initializeOpenAI(cfg)
	case GitHubModelsProvider:
		return initializeGitHubModels(cfg)
	case OllamaProvider:
		return initializeOllama(cfg)
	case AzureOpenAIProvider:
		return initializeAzureOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

// Extractor builds an extractor around the provider's model
func (p *Provider) Extractor(opts ...Option) *Extractor {
	return NewExtractor(p.Model, append([]Option{WithBinaryImages(p.BinaryImages)}, opts...)...)
}

// initializeOpenAI creates an OpenAI LLM instance
func initializeOpenAI(cfg ProviderConfig) (*Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI model: %w", err)
	}

	return &Provider{Type: OpenAIProvider, ModelName: cfg.Model, Model: llm}, nil
}

// initializeGitHubModels creates a client for GitHub Models, which speaks
// the OpenAI API
func initializeGitHubModels(cfg ProviderConfig) (*Provider, error) {
	token := cfg.APIKey
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN environment variable is required for GitHub Models")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GitHubModelsURL
	}

	llm, err := openai.New(
		openai.WithModel(cfg.Model),
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}

	return &Provider{Type: GitHubModelsProvider, ModelName: cfg.Model, Model: llm}, nil
}

// initializeOllama creates a local Ollama LLM instance
func initializeOllama(cfg ProviderConfig) (*Provider, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Ollama model: %w", err)
	}

	return &Provider{Type: OllamaProvider, ModelName: cfg.Model, Model: llm, BinaryImages: true}, nil
}
