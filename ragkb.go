package ragkb

import "context"

// QueryRequest is the JSON body accepted by the query function.
type QueryRequest struct {
	Prompt string `json:"prompt"`
}

// Citation is one source document the answer was grounded on.
// Title is serialized as null when the provider did not supply one.
type Citation struct {
	Index      int     `json:"index"`
	DocumentID string  `json:"documentId"`
	Title      *string `json:"title"`
	Snippet    string  `json:"snippet"`
}

// Response is the payload returned to the caller on success.
type Response struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// ErrorResponse is the body of every 4xx and 5xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnswerStream delivers the generated answer in chunks.
// Recv returns io.EOF once the answer is complete.
type AnswerStream interface {
	Recv() ([]byte, error)
}

// CitationRecord is a citation as the provider returned it, before shaping.
type CitationRecord struct {
	DocumentID string
	Title      *string
	ChunkText  *string
	Content    *string
}

// ProviderResponse is the raw result of one retrieve and generate call.
type ProviderResponse struct {
	Answer    AnswerStream
	Citations []CitationRecord
}

// Provider answers a prompt from a knowledge base.
type Provider interface {
	RetrieveAndGenerate(ctx context.Context, prompt string) (*ProviderResponse, error)
}
