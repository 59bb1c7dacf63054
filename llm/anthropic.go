package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic model constants.
const (
	Claude3Opus    = "claude-3-opus-20240229"
	Claude3Sonnet  = "claude-3-sonnet-20240229"
	Claude3Haiku   = "claude-3-haiku-20240307"
	Claude35Sonnet = "claude-3-5-sonnet-20241022"
	Claude35Haiku  = "claude-3-5-haiku-20241022"
)

// AnthropicLLM implements the LLM interface for Anthropic Claude models,
// built on the official anthropic-sdk-go client rather than a hand-rolled
// HTTP transport.
type AnthropicLLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// AnthropicOption configures an AnthropicLLM.
type AnthropicOption func(*anthropicConfig)

type anthropicConfig struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int64
	httpClient *http.Client
	logger     *slog.Logger
}

// WithAnthropicAPIKey sets the API key.
func WithAnthropicAPIKey(apiKey string) AnthropicOption {
	return func(c *anthropicConfig) { c.apiKey = apiKey }
}

// WithAnthropicBaseURL sets the base URL.
func WithAnthropicBaseURL(baseURL string) AnthropicOption {
	return func(c *anthropicConfig) { c.baseURL = baseURL }
}

// WithAnthropicModel sets the model.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *anthropicConfig) { c.model = model }
}

// WithAnthropicMaxTokens sets the max tokens.
func WithAnthropicMaxTokens(maxTokens int) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = int64(maxTokens) }
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(c *anthropicConfig) { c.httpClient = client }
}

// NewAnthropicLLM creates a new Anthropic LLM client over anthropic-sdk-go.
func NewAnthropicLLM(opts ...AnthropicOption) *AnthropicLLM {
	cfg := &anthropicConfig{
		apiKey:    os.Getenv("ANTHROPIC_API_KEY"),
		model:     Claude35Sonnet,
		maxTokens: 4096,
		logger:    slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &AnthropicLLM{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
		logger:    cfg.logger,
	}
}

// Complete generates a completion for a given prompt.
func (a *AnthropicLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return a.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

// Chat generates a response for a list of chat messages.
func (a *AnthropicLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	a.logger.Info("Chat called", "model", a.model, "message_count", len(messages))

	params := a.messageParams(messages)
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Stream generates a streaming completion for a given prompt.
func (a *AnthropicLLM) Stream(ctx context.Context, prompt string) (<-chan string, error) {
	tokenChan, err := a.StreamChat(ctx, []ChatMessage{NewUserMessage(prompt)})
	if err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for tok := range tokenChan {
			select {
			case out <- tok.Delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Metadata returns information about the model's capabilities.
func (a *AnthropicLLM) Metadata() LLMMetadata {
	return getAnthropicModelMetadata(a.model)
}

// SupportsToolCalling returns true if the model supports tool calling.
func (a *AnthropicLLM) SupportsToolCalling() bool { return true }

// SupportsStructuredOutput returns true if the model supports structured output.
func (a *AnthropicLLM) SupportsStructuredOutput() bool { return true }

// ChatWithTools generates a response that may include tool calls.
func (a *AnthropicLLM) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []*ToolMetadata, opts *ChatCompletionOptions) (CompletionResponse, error) {
	a.logger.Info("ChatWithTools called", "model", a.model, "message_count", len(messages), "tool_count", len(tools))

	params := a.messageParams(messages)
	params.Tools = toAnthropicTools(tools)
	if opts != nil {
		if opts.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*opts.Temperature))
		}
		if opts.TopP != nil {
			params.TopP = anthropic.Float(float64(*opts.TopP))
		}
		if opts.MaxTokens != nil {
			params.MaxTokens = int64(*opts.MaxTokens)
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, err
	}
	return fromAnthropicMessage(resp), nil
}

// ChatWithFormat generates a response in the specified format.
func (a *AnthropicLLM) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (string, error) {
	if format != nil && (format.Type == "json_object" || format.Type == "json_schema") {
		jsonInstruction := "You must respond with valid JSON only. Do not include any text outside the JSON object."

		hasSystem := false
		for i, msg := range messages {
			if msg.Role == MessageRoleSystem {
				messages[i].Content = jsonInstruction + "\n\n" + msg.Content
				hasSystem = true
				break
			}
		}
		if !hasSystem {
			messages = append([]ChatMessage{NewSystemMessage(jsonInstruction)}, messages...)
		}
	}

	return a.Chat(ctx, messages)
}

// StreamChat generates a streaming response for chat messages.
func (a *AnthropicLLM) StreamChat(ctx context.Context, messages []ChatMessage) (<-chan StreamToken, error) {
	a.logger.Info("StreamChat called", "model", a.model, "message_count", len(messages))

	params := a.messageParams(messages)
	stream := a.client.Messages.NewStreaming(ctx, params)

	tokenChan := make(chan StreamToken)
	go func() {
		defer close(tokenChan)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text := delta.Delta.Text
			if text == "" {
				continue
			}
			select {
			case tokenChan <- StreamToken{Delta: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return tokenChan, nil
}

// messageParams converts ChatMessage slice into an anthropic-sdk-go request,
// splitting out the system message the way the Anthropic API requires it as
// a top-level field rather than a message in the list.
func (a *AnthropicLLM) messageParams(messages []ChatMessage) anthropic.MessageNewParams {
	var anthropicMessages []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		if msg.Role == MessageRoleSystem {
			systemPrompt = msg.GetTextContent()
			continue
		}

		blocks := toAnthropicBlocks(msg)
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == MessageRoleAssistant {
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(blocks...))
		} else {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(blocks...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	return params
}

func toAnthropicBlocks(msg ChatMessage) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion

	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}

	for _, block := range msg.Blocks {
		switch block.Type {
		case ContentBlockTypeText:
			blocks = append(blocks, anthropic.NewTextBlock(block.Text))
		case ContentBlockTypeToolCall:
			if block.ToolCall != nil {
				var input map[string]interface{}
				_ = json.Unmarshal([]byte(block.ToolCall.Arguments), &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(block.ToolCall.ID, input, block.ToolCall.Name))
			}
		case ContentBlockTypeToolResult:
			if block.ToolResult != nil {
				blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolResult.ToolCallID, block.ToolResult.Content, false))
			}
		}
	}
	return blocks
}

func toAnthropicTools(tools []*ToolMetadata) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{}
		if tool.Parameters != nil {
			if props, ok := tool.Parameters["properties"].(map[string]interface{}); ok {
				inputSchema.Properties = props
			}
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return out
}

func responseText(resp *anthropic.Message) string {
	var text string
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text
}

func fromAnthropicMessage(resp *anthropic.Message) CompletionResponse {
	var text string
	msg := ChatMessage{Role: MessageRoleAssistant}

	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			msg.Blocks = append(msg.Blocks, NewToolCallBlock(&ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(args),
			}))
		}
	}

	msg.Content = text
	return CompletionResponse{Text: text, Message: &msg}
}

// getAnthropicModelMetadata returns metadata for Anthropic models.
func getAnthropicModelMetadata(model string) LLMMetadata {
	switch model {
	case Claude3Opus:
		return LLMMetadata{
			ModelName:         model,
			ContextWindow:     200000,
			NumOutputTokens:   4096,
			IsChat:            true,
			IsFunctionCalling: true,
			IsMultiModal:      true,
			SystemRole:        "system",
		}
	case Claude3Sonnet, Claude35Sonnet:
		return LLMMetadata{
			ModelName:         model,
			ContextWindow:     200000,
			NumOutputTokens:   8192,
			IsChat:            true,
			IsFunctionCalling: true,
			IsMultiModal:      true,
			SystemRole:        "system",
		}
	case Claude3Haiku, Claude35Haiku:
		return LLMMetadata{
			ModelName:         model,
			ContextWindow:     200000,
			NumOutputTokens:   4096,
			IsChat:            true,
			IsFunctionCalling: true,
			IsMultiModal:      true,
			SystemRole:        "system",
		}
	default:
		return DefaultLLMMetadata(model)
	}
}

// Ensure AnthropicLLM implements the interfaces.
var _ LLM = (*AnthropicLLM)(nil)
var _ LLMWithMetadata = (*AnthropicLLM)(nil)
var _ LLMWithToolCalling = (*AnthropicLLM)(nil)
var _ LLMWithStructuredOutput = (*AnthropicLLM)(nil)
var _ FullLLM = (*AnthropicLLM)(nil)
