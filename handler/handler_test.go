package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"ragkb"
	"ragkb/answer"
	"ragkb/handler"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const origin = "https://app.example.com"

type fakeProvider struct {
	res     *ragkb.ProviderResponse
	err     error
	prompts []string
}

func (f *fakeProvider) RetrieveAndGenerate(ctx context.Context, prompt string) (*ragkb.ProviderResponse, error) {
	f.prompts = append(f.prompts, prompt)
	return f.res, f.err
}

func newHandler(p *fakeProvider, logs io.Writer) *handler.Handler {
	log := slog.New(slog.NewTextHandler(logs, nil))
	return handler.New(log, origin, func(ctx context.Context) (ragkb.Provider, error) {
		return p, nil
	})
}

func stringBody(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func assertCORS(t *testing.T, resp events.APIGatewayProxyResponse) {
	t.Helper()
	assert.Check(t, is.Equal(resp.Headers["Access-Control-Allow-Origin"], origin))
	assert.Check(t, is.Equal(resp.Headers["Access-Control-Allow-Headers"], "Content-Type,Authorization"))
	assert.Check(t, is.Equal(resp.Headers["Access-Control-Allow-Methods"], "OPTIONS,POST"))
}

func errorMessage(t *testing.T, resp events.APIGatewayProxyResponse) string {
	t.Helper()
	var body ragkb.ErrorResponse
	assert.NilError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body.Error
}

func TestPreflight(t *testing.T) {
	for _, body := range []json.RawMessage{nil, stringBody("not json"), json.RawMessage(`{"prompt":"hi"}`)} {
		p := &fakeProvider{}
		resp, err := newHandler(p, io.Discard).Handle(context.Background(), handler.Event{
			HTTPMethod: http.MethodOptions,
			Body:       body,
		})
		assert.NilError(t, err)
		assert.Equal(t, resp.StatusCode, http.StatusOK)
		assert.Equal(t, resp.Body, "")
		assert.Equal(t, len(resp.Headers), 3)
		assertCORS(t, resp)
		assert.Equal(t, len(p.prompts), 0)
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body json.RawMessage
		want string
	}{
		{name: "unparseable string body", body: stringBody("{prompt:"), want: "Invalid JSON"},
		{name: "empty string body", body: stringBody(""), want: "Invalid JSON"},
		{name: "no body", body: nil, want: "Invalid JSON"},
		{name: "null body", body: json.RawMessage("null"), want: "Invalid JSON"},
		{name: "prompt is a number", body: stringBody(`{"prompt":5}`), want: "Invalid JSON"},
		{name: "array body", body: stringBody(`["prompt"]`), want: "Invalid JSON"},
		{name: "prompt absent", body: stringBody(`{"question":"why"}`), want: "Missing 'prompt'"},
		{name: "prompt empty", body: stringBody(`{"prompt":""}`), want: "Missing 'prompt'"},
		{name: "prompt whitespace", body: stringBody(`{"prompt":" \n\t "}`), want: "Missing 'prompt'"},
		{name: "prompt null", body: stringBody(`{"prompt":null}`), want: "Missing 'prompt'"},
		{name: "object body without prompt", body: json.RawMessage(`{}`), want: "Missing 'prompt'"},
		{name: "prompt key upper case", body: stringBody(`{"PROMPT":"hi"}`), want: "Missing 'prompt'"},
		{name: "prompt key title case", body: stringBody(`{"Prompt":"hi"}`), want: "Missing 'prompt'"},
		{name: "null string body", body: stringBody("null"), want: "Invalid JSON"},
		{name: "padded null string body", body: stringBody(" null\n"), want: "Invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			resp, err := newHandler(p, io.Discard).Handle(context.Background(), handler.Event{
				HTTPMethod: http.MethodPost,
				Body:       tt.body,
			})
			assert.NilError(t, err)
			assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
			assert.Equal(t, errorMessage(t, resp), tt.want)
			assertCORS(t, resp)
			assert.Equal(t, len(p.prompts), 0)
		})
	}
}

func TestSuccess(t *testing.T) {
	long := strings.Repeat("k", 300)
	p := &fakeProvider{res: &ragkb.ProviderResponse{
		Answer: answer.NewChunks([]byte("Use "), []byte("presigned URLs.")),
		Citations: []ragkb.CitationRecord{
			{DocumentID: "s3://kb/presign.md", Title: aws.String("Presign"), ChunkText: &long},
			{DocumentID: "s3://kb/expiry.md", Content: aws.String("seven days")},
		},
	}}
	resp, err := newHandler(p, io.Discard).Handle(context.Background(), handler.Event{
		HTTPMethod: http.MethodPost,
		Body:       stringBody(`{"prompt":"  How do I share an S3 object?  "}`),
	})
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, resp.Headers["Content-Type"], "application/json")
	assertCORS(t, resp)
	assert.DeepEqual(t, p.prompts, []string{"How do I share an S3 object?"})

	var got ragkb.Response
	assert.NilError(t, json.Unmarshal([]byte(resp.Body), &got))
	assert.Equal(t, got.Answer, "Use presigned URLs.")
	assert.Equal(t, len(got.Citations), 2)
	assert.Equal(t, got.Citations[0].Index, 1)
	assert.Equal(t, got.Citations[0].Snippet, long[:200])
	assert.Equal(t, got.Citations[1].Index, 2)
	assert.Check(t, is.Nil(got.Citations[1].Title))
	assert.Assert(t, strings.Contains(resp.Body, `"title":null`))
}

func TestSuccessObjectBody(t *testing.T) {
	p := &fakeProvider{res: &ragkb.ProviderResponse{Answer: answer.NewChunks()}}
	resp, err := newHandler(p, io.Discard).Handle(context.Background(), handler.Event{
		HTTPMethod: http.MethodPost,
		Body:       json.RawMessage(`{"prompt":"hello"}`),
	})
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, resp.Body, `{"answer":"","citations":[]}`)
}

func TestUpstreamFailure(t *testing.T) {
	var logs bytes.Buffer
	p := &fakeProvider{err: &smithy.GenericAPIError{
		Code:    "AccessDeniedException",
		Message: "secret detail about arn:aws:bedrock:kb/GI0RV3OU0T",
		Fault:   smithy.FaultClient,
	}}
	resp, err := newHandler(p, &logs).Handle(context.Background(), handler.Event{
		HTTPMethod: http.MethodPost,
		Body:       stringBody(`{"prompt":"hi"}`),
	})
	assert.NilError(t, err)
	assert.Equal(t, resp.StatusCode, http.StatusInternalServerError)
	assert.Equal(t, resp.Body, `{"error":"Failed to retrieve and generate"}`)
	assertCORS(t, resp)
	assert.Check(t, is.Contains(logs.String(), "AccessDeniedException"))
	assert.Check(t, is.Contains(logs.String(), "secret detail"))
	assert.Assert(t, !strings.Contains(resp.Body, "secret"))
}

func TestUpstreamFailureModes(t *testing.T) {
	tests := []struct {
		name        string
		newProvider handler.ProviderFunc
	}{
		{
			name: "provider construction fails",
			newProvider: func(ctx context.Context) (ragkb.Provider, error) {
				return nil, errors.New("no credentials")
			},
		},
		{
			name: "answer stream breaks",
			newProvider: func(ctx context.Context) (ragkb.Provider, error) {
				return &fakeProvider{res: &ragkb.ProviderResponse{Answer: brokenStream{}}}, nil
			},
		},
		{
			name: "empty response",
			newProvider: func(ctx context.Context) (ragkb.Provider, error) {
				return &fakeProvider{}, nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.New(slog.New(slog.NewTextHandler(io.Discard, nil)), origin, tt.newProvider)
			resp, err := h.Handle(context.Background(), handler.Event{
				HTTPMethod: http.MethodPost,
				Body:       stringBody(`{"prompt":"hi"}`),
			})
			assert.NilError(t, err)
			assert.Equal(t, resp.StatusCode, http.StatusInternalServerError)
			assert.Equal(t, errorMessage(t, resp), "Failed to retrieve and generate")
			assert.Assert(t, !strings.Contains(resp.Body, "answer"))
			assertCORS(t, resp)
		})
	}
}

type brokenStream struct{}

func (brokenStream) Recv() ([]byte, error) {
	return nil, errors.New("stream closed by peer")
}

func TestFreshProviderPerInvocation(t *testing.T) {
	calls := 0
	h := handler.New(slog.New(slog.NewTextHandler(io.Discard, nil)), origin, func(ctx context.Context) (ragkb.Provider, error) {
		calls++
		return &fakeProvider{res: &ragkb.ProviderResponse{Answer: answer.NewChunks([]byte("ok"))}}, nil
	})
	for i := 0; i < 3; i++ {
		_, err := h.Handle(context.Background(), handler.NewEvent(http.MethodPost, []byte(`{"prompt":"hi"}`)))
		assert.NilError(t, err)
	}
	assert.Equal(t, calls, 3)
}

func TestHeadersAreCopies(t *testing.T) {
	a := handler.Headers(origin)
	a["Content-Type"] = "application/json"
	b := handler.Headers(origin)
	assert.Equal(t, len(b), 3)
}
