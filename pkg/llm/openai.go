package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/guangxiangdebizi/tradingagents/pkg/config"
	"github.com/guangxiangdebizi/tradingagents/pkg/models"
)

// OpenAIClient implements Client against any OpenAI-compatible chat
// completion endpoint (configured via LLM_BASE_URL / LLM_MODEL).
type OpenAIClient struct {
	client *openai.Client
	cfg    config.LLMConfig
	logger *slog.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the configured endpoint.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Chat sends [system, ...history, user] to the model and transparently
// drives the tool-calling loop: while the reply requests tools, each call
// is executed sequentially in the order given, results are appended as
// tool messages, and the model is re-prompted. The loop ends on a plain
// assistant message, on the iteration cap, or on cancellation.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	messages := buildMessages(req)

	var tools []openai.Tool
	if len(req.Tools) > 0 {
		tools = convertTools(req.Tools)
	}

	result := &ChatResult{}
	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			result.Warnings = append(result.Warnings, "chat cancelled before model call")
			return result, err
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Temperature: float32(c.cfg.Temperature),
			MaxTokens:   c.cfg.MaxTokens,
			Tools:       tools,
		})
		if err != nil {
			return result, fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return result, fmt.Errorf("chat completion returned no choices")
		}

		msg := resp.Choices[0].Message
		result.Content = msg.Content

		if len(msg.ToolCalls) == 0 {
			return result, nil
		}

		if req.Runner == nil {
			result.Warnings = append(result.Warnings,
				"model requested tools but no tool runner is configured")
			return result, nil
		}

		if iteration >= MaxToolIterations {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"tool-call loop exceeded %d iterations, returning last content", MaxToolIterations))
			c.logger.Warn("Tool-call iteration cap reached",
				"agent", req.AgentName, "iterations", iteration)
			return result, nil
		}

		messages = append(messages, msg)

		// Execute requested tools sequentially in the order given so the
		// transcript is deterministic.
		for _, tc := range msg.ToolCalls {
			if err := ctx.Err(); err != nil {
				result.Warnings = append(result.Warnings, "chat cancelled during tool execution")
				return result, err
			}

			content, isError := req.Runner.CallTool(ctx, tc.Function.Name, tc.Function.Arguments)
			result.ToolCallsUsed++
			if isError {
				c.logger.Warn("Tool call returned an error payload",
					"agent", req.AgentName, "tool", tc.Function.Name)
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: tc.ID,
			})
		}
	}
}

func buildMessages(req ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.History {
		cm := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		if m.Role == models.RoleTool {
			cm.ToolCallID = m.ToolCallID
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		messages = append(messages, cm)
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})
	return messages
}

func convertTools(defs []models.ToolDefinition) []openai.Tool {
	tools := make([]openai.Tool, len(defs))
	for i, def := range defs {
		var schema map[string]any
		if def.ParametersSchema != "" {
			if err := json.Unmarshal([]byte(def.ParametersSchema), &schema); err != nil {
				schema = nil
			}
		}
		if schema == nil {
			schema = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema,
			},
		}
	}
	return tools
}
