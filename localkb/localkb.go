// Package localkb answers prompts from a local knowledge base: it retrieves
// passages itself, fills the prompt template, and streams the answer from a
// Bedrock foundation model.
package localkb

import (
	"context"
	"fmt"
	"strings"

	"ragkb"
	cfgpkg "ragkb/config"
	"ragkb/localstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// DefaultResults is the number of passages retrieved when the configuration does not say.
const DefaultResults = 5

// Retriever finds the k passages closest to a question, best first.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]localstore.Passage, error)
}

// RuntimeAPI is the part of the Bedrock runtime client used here.
type RuntimeAPI interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

type Provider struct {
	retriever Retriever
	runtime   RuntimeAPI
	cfg       cfgpkg.Config
	// openStream is swapped in tests, the SDK output cannot be built outside the SDK.
	openStream func(*bedrockruntime.ConverseStreamOutput) EventStream
}

func NewWithAPI(retriever Retriever, runtime RuntimeAPI, cfg cfgpkg.Config) *Provider {
	return &Provider{
		retriever: retriever,
		runtime:   runtime,
		cfg:       cfg,
		openStream: func(out *bedrockruntime.ConverseStreamOutput) EventStream {
			if s := out.GetStream(); s != nil {
				return s
			}
			return nil
		},
	}
}

// New creates a provider with a fresh Bedrock runtime client.
func New(ctx context.Context, retriever Retriever, cfg cfgpkg.Config) (*Provider, error) {
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
	return NewWithAPI(retriever, bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func Factory(retriever Retriever, cfg cfgpkg.Config) func(ctx context.Context) (ragkb.Provider, error) {
	return func(ctx context.Context) (ragkb.Provider, error) {
		c, err := New(ctx, retriever, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (p *Provider) RetrieveAndGenerate(ctx context.Context, prompt string) (*ragkb.ProviderResponse, error) {
	log := ragkb.Logger
	k := p.cfg.NumberOfResults
	if k <= 0 {
		k = DefaultResults
	}
	passages, err := p.retriever.Retrieve(ctx, prompt, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}
	log.Debug("Passages retrieved", "count", len(passages))

	template := p.cfg.PromptTemplate
	if template == "" {
		template = cfgpkg.DefaultPromptTemplate
	}
	text := Render(template, passages, prompt, p.cfg.ContentSeparator)

	log.Info("Asking model", "modelId", p.cfg.ModelArn)
	out, err := p.runtime.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId: aws.String(p.cfg.ModelArn),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("converse stream: %w", err)
	}
	stream := p.openStream(out)
	if stream == nil {
		return nil, fmt.Errorf("converse stream: response has no stream")
	}
	return &ragkb.ProviderResponse{
		Answer:    &Answer{stream: stream},
		Citations: Records(passages),
	}, nil
}

// Render fills the template the way the managed knowledge base does,
// each passage wrapped in separator tags.
func Render(template string, passages []localstore.Passage, question, separator string) string {
	if separator == "" {
		separator = "document"
	}
	var sb strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&sb, "<%v>\n", separator)
		sb.WriteString(p.Content)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "</%v>\n", separator)
	}
	return strings.NewReplacer(
		cfgpkg.SearchResultsPlaceholder, sb.String(),
		cfgpkg.UserInputPlaceholder, question,
	).Replace(template)
}

// Records cites the passages in rank order.
func Records(passages []localstore.Passage) []ragkb.CitationRecord {
	records := make([]ragkb.CitationRecord, 0, len(passages))
	for _, p := range passages {
		id := p.Link
		if id == "" {
			id = p.ID
		}
		content := p.Content
		record := ragkb.CitationRecord{
			DocumentID: id,
			ChunkText:  &content,
		}
		if p.Title != "" {
			title := p.Title
			record.Title = &title
		}
		records = append(records, record)
	}
	return records
}
