// Package answer turns a raw provider response into the JSON result
// returned to the caller.
package answer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"ragkb"
)

// SnippetLength is the number of characters kept from a citation's text.
const SnippetLength = 200

// Drain reads the whole answer stream and decodes it as UTF-8.
// Invalid byte sequences are replaced with U+FFFD.
func Drain(stream ragkb.AnswerStream) (string, error) {
	if stream == nil {
		return "", nil
	}
	var buf bytes.Buffer
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading answer stream: %w", err)
		}
		buf.Write(chunk)
	}
	return strings.ToValidUTF8(buf.String(), string(utf8.RuneError)), nil
}

// Snippet prefers the retrieved chunk text over the generated content.
func Snippet(record ragkb.CitationRecord) string {
	text := ""
	switch {
	case record.ChunkText != nil && *record.ChunkText != "":
		text = *record.ChunkText
	case record.Content != nil && *record.Content != "":
		text = *record.Content
	}
	return truncate(text, SnippetLength)
}

// Citations numbers the records from 1 in the order the provider returned them.
func Citations(records []ragkb.CitationRecord) []ragkb.Citation {
	citations := make([]ragkb.Citation, 0, len(records))
	for i, record := range records {
		var title *string
		if record.Title != nil && *record.Title != "" {
			t := *record.Title
			title = &t
		}
		citations = append(citations, ragkb.Citation{
			Index:      i + 1,
			DocumentID: record.DocumentID,
			Title:      title,
			Snippet:    Snippet(record),
		})
	}
	return citations
}

// Shape builds the caller's result. Either all of it or an error.
func Shape(res *ragkb.ProviderResponse) (ragkb.Response, error) {
	if res == nil {
		return ragkb.Response{}, errors.New("empty provider response")
	}
	text, err := Drain(res.Answer)
	if err != nil {
		return ragkb.Response{}, err
	}
	return ragkb.Response{
		Answer:    text,
		Citations: Citations(res.Citations),
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Chunks is an AnswerStream over chunks that are already in memory.
type Chunks struct {
	chunks [][]byte
	next   int
}

func NewChunks(chunks ...[]byte) *Chunks {
	return &Chunks{chunks: chunks}
}

func (c *Chunks) Recv() ([]byte, error) {
	if c.next >= len(c.chunks) {
		return nil, io.EOF
	}
	chunk := c.chunks[c.next]
	c.next++
	return chunk, nil
}

// Append adds a chunk to the end of the stream.
func (c *Chunks) Append(chunk []byte) {
	c.chunks = append(c.chunks, chunk)
}
