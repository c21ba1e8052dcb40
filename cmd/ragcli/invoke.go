package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"ragkb"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

type InvokeCommand struct {
	Question     string `arg:"" help:"The question to ask the Lambda function."`
	FunctionName string `help:"Name or ARN of the query function." env:"FUNCTION_NAME" default:"ragkb-query"`
	Region       string `help:"AWS region of the function." env:"AWS_REGION" default:""`
	Verbose      bool   `help:"Show citations also." short:"v"`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"warn"`
}

// LambdaInvoker is the part of the Lambda client used by invoke.
type LambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

func (c InvokeCommand) Run(ctx context.Context) error {
	getLogger(c.LogLevel)
	var opts []func(*config.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}
	res, err := invoke(ctx, lambda.NewFromConfig(cfg), c.FunctionName, c.Question)
	if err != nil {
		return err
	}
	printResponse(os.Stdout, res, c.Verbose)
	return nil
}

// invoke sends the question as an API Gateway proxy event, the shape the
// function receives in production.
func invoke(ctx context.Context, client LambdaInvoker, functionName, question string) (ragkb.Response, error) {
	body, err := json.Marshal(ragkb.QueryRequest{Prompt: question})
	if err != nil {
		return ragkb.Response{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	payload, err := json.Marshal(events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/query",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	})
	if err != nil {
		return ragkb.Response{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	result, err := client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(functionName),
		Payload:      payload,
	})
	if err != nil {
		return ragkb.Response{}, fmt.Errorf("failed to invoke lambda function: %w", err)
	}
	if result.FunctionError != nil {
		return ragkb.Response{}, fmt.Errorf("lambda function returned an error: %s", aws.ToString(result.FunctionError))
	}

	var proxy events.APIGatewayProxyResponse
	if err := json.Unmarshal(result.Payload, &proxy); err != nil {
		return ragkb.Response{}, fmt.Errorf("failed to unmarshal response payload: %w", err)
	}
	if proxy.StatusCode != http.StatusOK {
		var e ragkb.ErrorResponse
		_ = json.Unmarshal([]byte(proxy.Body), &e)
		return ragkb.Response{}, fmt.Errorf("query failed with status %d: %s", proxy.StatusCode, e.Error)
	}
	var res ragkb.Response
	if err := json.Unmarshal([]byte(proxy.Body), &res); err != nil {
		return ragkb.Response{}, fmt.Errorf("failed to unmarshal answer: %w", err)
	}
	return res, nil
}

func printResponse(w io.Writer, res ragkb.Response, verbose bool) {
	fmt.Fprintln(w, "Answer:", res.Answer)
	if !verbose {
		return
	}
	fmt.Fprint(w, "\nThe following documents were cited\n============\n")
	for _, c := range res.Citations {
		title := "-"
		if c.Title != nil {
			title = *c.Title
		}
		fmt.Fprintf(w, "[%d] %s (%s)\n", c.Index, c.DocumentID, title)
		fmt.Fprintf(w, "    %s\n", c.Snippet)
	}
}
