package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockModelClient implements ModelClient over the Bedrock Converse API.
type BedrockModelClient struct {
	api     bedrockConverseAPI
	modelID string
}

func NewBedrockModelClient(api bedrockConverseAPI, modelID string) *BedrockModelClient {
	if api == nil {
		panic("analysis: bedrock converse client cannot be nil")
	}
	return &BedrockModelClient{api: api, modelID: modelID}
}

func (c *BedrockModelClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(c.modelID) == "" {
		return "", errors.New("analysis: bedrock model id is required")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("analysis: prompt is required")
	}

	var systemBlocks []brtypes.SystemContentBlock
	if strings.TrimSpace(req.System) != "" {
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: req.System})
	}

	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		System:  systemBlocks,
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: inference,
	})
	if err != nil {
		return "", fmt.Errorf("analysis: bedrock converse failed: %w", err)
	}

	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(msgOut.Value.Content) == 0 {
		return "", errors.New("analysis: bedrock returned no content")
	}
	var text strings.Builder
	for _, block := range msgOut.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errors.New("analysis: bedrock returned empty text")
	}
	return text.String(), nil
}
