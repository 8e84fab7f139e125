package receipt

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/tmc/langchaingo/llms"
)

// azureModel serves GenerateContent from an Azure OpenAI deployment
type azureModel struct {
	client         *azopenai.Client
	deploymentName string
}

// initializeAzureOpenAI creates a client for an Azure OpenAI deployment.
// The model name is the deployment name.
func initializeAzureOpenAI(cfg ProviderConfig) (*Provider, error) {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	deployment := cfg.Model
	if deployment == "" {
		deployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME")
	}

	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("Azure OpenAI configuration missing: ensure AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, and AZURE_OPENAI_DEPLOYMENT_NAME are set")
	}

	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	return &Provider{
		Type:      AzureOpenAIProvider,
		ModelName: deployment,
		Model:     &azureModel{client: client, deploymentName: deployment},
	}, nil
}

// GenerateContent sends the messages as one chat completion request
func (m *azureModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	chatMessages := make([]azopenai.ChatRequestMessageClassification, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != llms.ChatMessageTypeHuman {
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		parts, err := azureParts(msg.Parts)
		if err != nil {
			return nil, err
		}
		chatMessages = append(chatMessages, &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(parts),
		})
	}

	req := azopenai.ChatCompletionsOptions{
		Messages:       chatMessages,
		DeploymentName: to.Ptr(m.deploymentName),
		Temperature:    to.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = to.Ptr(int32(opts.MaxTokens))
	}

	resp, err := m.client.GetChatCompletions(ctx, req, nil)
	if err != nil {
		return nil, fmt.Errorf("Azure OpenAI completion failed: %w", err)
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		c := &llms.ContentChoice{}
		if choice.Message != nil && choice.Message.Content != nil {
			c.Content = *choice.Message.Content
		}
		if choice.FinishReason != nil {
			c.StopReason = string(*choice.FinishReason)
		}
		choices = append(choices, c)
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func azureParts(parts []llms.ContentPart) ([]azopenai.ChatCompletionRequestMessageContentPartClassification, error) {
	out := make([]azopenai.ChatCompletionRequestMessageContentPartClassification, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case llms.TextContent:
			out = append(out, &azopenai.ChatCompletionRequestMessageContentPartText{Text: to.Ptr(p.Text)})
		case llms.ImageURLContent:
			out = append(out, &azopenai.ChatCompletionRequestMessageContentPartImage{
				ImageURL: &azopenai.ChatCompletionRequestMessageContentPartImageURL{URL: to.Ptr(p.URL)},
			})
		case llms.BinaryContent:
			url := "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
			out = append(out, &azopenai.ChatCompletionRequestMessageContentPartImage{
				ImageURL: &azopenai.ChatCompletionRequestMessageContentPartImageURL{URL: to.Ptr(url)},
			})
		default:
			return nil, fmt.Errorf("unsupported content part %T", part)
		}
	}
	return out, nil
}
