package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/opsforge/opsagent/pkg/logger"
)

const bedrockComponent = "runtime.bedrock"

// BedrockRuntime calls Claude models through Amazon Bedrock using the
// ambient AWS credential chain.
type BedrockRuntime struct {
	client anthropic.Client
}

// NewBedrock builds a runtime for the given region.
func NewBedrock(ctx context.Context, region string) (*BedrockRuntime, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	client := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	return &BedrockRuntime{client: client}, nil
}

func (r *BedrockRuntime) Chat(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages:    toMessageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toToolParams(req.Tools)
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	out := &Response{StopReason: string(resp.StopReason)}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			input, _ := json.Marshal(block.Input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	logger.DebugCF(bedrockComponent, "model call completed", map[string]any{
		"model": req.Model, "stop_reason": out.StopReason, "tool_calls": len(out.ToolCalls),
	})
	return out, nil
}

func toMessageParams(messages []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch {
		case len(msg.ToolResults) > 0:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults))
			for _, tr := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.ID, tr.Content, tr.IsError))
			}
			params = append(params, anthropic.NewUserMessage(blocks...))
		case msg.Role == "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, tc := range msg.ToolCalls {
				var input any
				_ = json.Unmarshal(tc.Input, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
		}
	}
	return params
}

func toToolParams(specs []ToolSpec) []anthropic.ToolUnionParam {
	params := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.Properties,
					Required:   spec.Required,
				},
			},
		})
	}
	return params
}
