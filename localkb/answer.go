package localkb

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// EventStream is the reader side of a ConverseStream response.
type EventStream interface {
	Events() <-chan types.ConverseStreamOutput
	Close() error
	Err() error
}

// Answer yields the text deltas of a ConverseStream response.
type Answer struct {
	stream EventStream
	done   bool
}

func (a *Answer) Recv() ([]byte, error) {
	if a.done {
		return nil, io.EOF
	}
	for event := range a.stream.Events() {
		delta, ok := event.(*types.ConverseStreamOutputMemberContentBlockDelta)
		if !ok {
			continue
		}
		if text, ok := delta.Value.Delta.(*types.ContentBlockDeltaMemberText); ok {
			return []byte(text.Value), nil
		}
	}
	a.done = true
	err := a.stream.Err()
	a.stream.Close()
	if err != nil {
		return nil, fmt.Errorf("converse stream: %w", err)
	}
	return nil, io.EOF
}
