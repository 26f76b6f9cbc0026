package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/observer"
)

func runLambda(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	d, err := buildDeps(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	lambda.Start(lambdaHandler(d.handler(cfg)))
	return nil
}

// lambdaHandler accepts an SNS event or a bare state-change document.
func lambdaHandler(h *observer.Handler) func(ctx context.Context, raw json.RawMessage) error {
	return func(ctx context.Context, raw json.RawMessage) error {
		changes, err := events.Decode(raw)
		if err != nil {
			return err
		}
		return h.HandleAll(ctx, changes)
	}
}
