package knowledgebase

import (
	"fmt"

	"ragkb"
	"ragkb/answer"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// EventStream is the reader side of a RetrieveAndGenerateStream response.
type EventStream interface {
	Events() <-chan types.RetrieveAndGenerateStreamResponseOutput
	Close() error
	Err() error
}

// Collect drains the event stream. Output events become answer chunks in
// arrival order, citation events become citation records.
func Collect(stream EventStream) (*ragkb.ProviderResponse, error) {
	log := ragkb.Logger
	defer stream.Close()

	chunks := answer.NewChunks()
	var citations []types.Citation
	for event := range stream.Events() {
		switch e := event.(type) {
		case *types.RetrieveAndGenerateStreamResponseOutputMemberOutput:
			if text := aws.ToString(e.Value.Text); text != "" {
				chunks.Append([]byte(text))
			}
		case *types.RetrieveAndGenerateStreamResponseOutputMemberCitation:
			if e.Value.Citation != nil {
				citations = append(citations, *e.Value.Citation)
			}
		case *types.RetrieveAndGenerateStreamResponseOutputMemberGuardrail:
			log.Warn("Guardrail intervened", "action", string(e.Value.Action))
		default:
			log.Debug("Ignoring stream event", "type", fmt.Sprintf("%T", event))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("reading retrieve and generate stream: %w", err)
	}
	return &ragkb.ProviderResponse{
		Answer:    chunks,
		Citations: Records(citations),
	}, nil
}
