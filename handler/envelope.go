package handler

import (
	"encoding/json"
	"net/http"

	"ragkb"

	"github.com/aws/aws-lambda-go/events"
)

const (
	MessageInvalidJSON     = "Invalid JSON"
	MessageMissingPrompt   = "Missing 'prompt'"
	MessageUpstreamFailure = "Failed to retrieve and generate"

	AllowHeaders = "Content-Type,Authorization"
	AllowMethods = "OPTIONS,POST"
)

// Headers returns a fresh copy of the CORS headers sent on every response.
func Headers(origin string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Headers": AllowHeaders,
		"Access-Control-Allow-Methods": AllowMethods,
	}
}

func (h *Handler) preflight() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    Headers(h.origin),
	}
}

func (h *Handler) errorResponse(status int, message string) events.APIGatewayProxyResponse {
	// Marshalling a single string field cannot fail.
	body, _ := json.Marshal(ragkb.ErrorResponse{Error: message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    Headers(h.origin),
		Body:       string(body),
	}
}

func (h *Handler) badRequest(message string) events.APIGatewayProxyResponse {
	return h.errorResponse(http.StatusBadRequest, message)
}

func (h *Handler) upstreamFailure() events.APIGatewayProxyResponse {
	return h.errorResponse(http.StatusInternalServerError, MessageUpstreamFailure)
}

func (h *Handler) ok(res ragkb.Response) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(res)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	headers := Headers(h.origin)
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(body),
	}, nil
}
