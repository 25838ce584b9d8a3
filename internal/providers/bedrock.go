package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockClient invokes an Anthropic-on-Bedrock model via InvokeModel.
type BedrockClient struct {
	client       *bedrockruntime.Client
	costPerToken float64
}

func NewBedrockClient(ctx context.Context, region string, costPerToken float64) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &BedrockClient{
		client:       bedrockruntime.NewFromConfig(cfg),
		costPerToken: costPerToken,
	}, nil
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *BedrockClient) Chat(ctx context.Context, prompt, model string) (Result, error) {
	payload, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return Result{}, OtherError(err)
	}

	start := time.Now()
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		if isThrottling(err) {
			return Result{}, RateLimitedError(err)
		}
		return Result{}, OtherError(err)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return Result{}, OtherError(err)
	}
	text := ""
	if len(decoded.Content) > 0 {
		text = decoded.Content[0].Text
	}
	tokens := decoded.Usage.InputTokens + decoded.Usage.OutputTokens

	return Result{
		Content:   text,
		LatencyMs: time.Since(start).Milliseconds(),
		Cost:      float64(tokens) * c.costPerToken,
	}, nil
}

func isThrottling(err error) bool {
	var te *types.ThrottlingException
	return errors.As(err, &te)
}
