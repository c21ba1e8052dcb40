// Package handler implements the query function: validate the request,
// ask the knowledge base, and wrap the result in a CORS enabled response.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"ragkb"
	"ragkb/answer"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/smithy-go"
)

// ProviderFunc builds the provider for a single invocation.
type ProviderFunc func(ctx context.Context) (ragkb.Provider, error)

// Handler answers API Gateway proxy events for the query endpoint.
type Handler struct {
	log         *slog.Logger
	origin      string
	newProvider ProviderFunc
}

// New returns a Handler that allows origin and builds a provider per invocation.
func New(log *slog.Logger, origin string, newProvider ProviderFunc) *Handler {
	return &Handler{
		log:         log,
		origin:      origin,
		newProvider: newProvider,
	}
}

// Handle never returns an error; every outcome is an HTTP response.
func (h *Handler) Handle(ctx context.Context, ev Event) (events.APIGatewayProxyResponse, error) {
	if ev.HTTPMethod == http.MethodOptions {
		return h.preflight(), nil
	}

	prompt, err := ParsePrompt(ev)
	if errors.Is(err, ErrMissingPrompt) {
		h.log.Info("Rejected request", "reason", MessageMissingPrompt)
		return h.badRequest(MessageMissingPrompt), nil
	}
	if err != nil {
		h.log.Info("Rejected request", "reason", MessageInvalidJSON, "error", err)
		return h.badRequest(MessageInvalidJSON), nil
	}

	h.log.Info("Prompt received", "length", len(prompt))
	res, err := h.retrieveAndGenerate(ctx, prompt)
	if err != nil {
		h.logUpstream(err)
		return h.upstreamFailure(), nil
	}

	resp, err := h.ok(res)
	if err != nil {
		h.log.Error("Encoding response failed", "error", err)
		return h.upstreamFailure(), nil
	}
	h.log.Info("Answer returned", "citations", len(res.Citations))
	return resp, nil
}

func (h *Handler) retrieveAndGenerate(ctx context.Context, prompt string) (ragkb.Response, error) {
	provider, err := h.newProvider(ctx)
	if err != nil {
		return ragkb.Response{}, fmt.Errorf("creating provider: %w", err)
	}
	raw, err := provider.RetrieveAndGenerate(ctx, prompt)
	if err != nil {
		return ragkb.Response{}, err
	}
	return answer.Shape(raw)
}

func (h *Handler) logUpstream(err error) {
	attrs := []any{"error", err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "code", apiErr.ErrorCode(), "fault", apiErr.ErrorFault().String())
	}
	h.log.Error("retrieveAndGenerate error", attrs...)
}
