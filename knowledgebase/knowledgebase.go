// Package knowledgebase calls the Bedrock knowledge base
// RetrieveAndGenerate API for a single prompt.
package knowledgebase

import (
	"context"
	"errors"
	"fmt"

	"ragkb"
	"ragkb/answer"
	cfgpkg "ragkb/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// API is the part of the Bedrock agent runtime client used here.
type API interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
	RetrieveAndGenerateStream(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateStreamInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateStreamOutput, error)
}

type Client struct {
	api API
	cfg cfgpkg.Config
}

func NewWithAPI(api API, cfg cfgpkg.Config) *Client {
	return &Client{api: api, cfg: cfg}
}

// New creates a client with its own SDK configuration. Retries are
// disabled, a failed call is reported as is.
func New(ctx context.Context, cfg cfgpkg.Config) (*Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewWithAPI(bedrockagentruntime.NewFromConfig(awsCfg), cfg), nil
}

// Factory returns a function that builds a fresh client per invocation.
func Factory(cfg cfgpkg.Config) func(ctx context.Context) (ragkb.Provider, error) {
	return func(ctx context.Context) (ragkb.Provider, error) {
		c, err := New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Configuration builds the knowledge base part of the request.
func Configuration(cfg cfgpkg.Config) *types.RetrieveAndGenerateConfiguration {
	template := cfg.PromptTemplate
	if template == "" {
		template = cfgpkg.DefaultPromptTemplate
	}
	kb := &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
		KnowledgeBaseId: aws.String(cfg.KnowledgeBaseID),
		ModelArn:        aws.String(cfg.ModelArn),
		GenerationConfiguration: &types.GenerationConfiguration{
			PromptTemplate: &types.PromptTemplate{
				TextPromptTemplate: aws.String(template),
			},
		},
	}
	if cfg.NumberOfResults > 0 {
		kb.RetrievalConfiguration = &types.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(min(cfg.NumberOfResults, cfgpkg.MaxNumberOfResults))),
			},
		}
	}
	return &types.RetrieveAndGenerateConfiguration{
		Type:                       types.RetrieveAndGenerateTypeKnowledgeBase,
		KnowledgeBaseConfiguration: kb,
	}
}

// BuildInput embeds the prompt as the input text of the request.
func BuildInput(cfg cfgpkg.Config, prompt string) *bedrockagentruntime.RetrieveAndGenerateInput {
	return &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(prompt),
		},
		RetrieveAndGenerateConfiguration: Configuration(cfg),
	}
}

func BuildStreamInput(cfg cfgpkg.Config, prompt string) *bedrockagentruntime.RetrieveAndGenerateStreamInput {
	return &bedrockagentruntime.RetrieveAndGenerateStreamInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(prompt),
		},
		RetrieveAndGenerateConfiguration: Configuration(cfg),
	}
}

// RetrieveAndGenerate sends exactly one request.
func (c *Client) RetrieveAndGenerate(ctx context.Context, prompt string) (*ragkb.ProviderResponse, error) {
	log := ragkb.Logger
	if c.cfg.StreamAnswer {
		return c.retrieveAndGenerateStream(ctx, prompt)
	}
	log.Debug("RetrieveAndGenerate", "knowledgeBaseId", c.cfg.KnowledgeBaseID, "modelArn", c.cfg.ModelArn)
	out, err := c.api.RetrieveAndGenerate(ctx, BuildInput(c.cfg, prompt))
	if err != nil {
		return nil, fmt.Errorf("retrieve and generate: %w", err)
	}
	if out == nil || out.Output == nil {
		return nil, errors.New("retrieve and generate: response has no output")
	}
	stream := answer.NewChunks()
	if text := aws.ToString(out.Output.Text); text != "" {
		stream.Append([]byte(text))
	}
	return &ragkb.ProviderResponse{
		Answer:    stream,
		Citations: Records(out.Citations),
	}, nil
}

func (c *Client) retrieveAndGenerateStream(ctx context.Context, prompt string) (*ragkb.ProviderResponse, error) {
	log := ragkb.Logger
	log.Debug("RetrieveAndGenerateStream", "knowledgeBaseId", c.cfg.KnowledgeBaseID, "modelArn", c.cfg.ModelArn)
	out, err := c.api.RetrieveAndGenerateStream(ctx, BuildStreamInput(c.cfg, prompt))
	if err != nil {
		return nil, fmt.Errorf("retrieve and generate stream: %w", err)
	}
	stream := out.GetStream()
	if stream == nil {
		return nil, errors.New("retrieve and generate stream: response has no stream")
	}
	return Collect(stream)
}
