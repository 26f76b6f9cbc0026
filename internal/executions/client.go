package executions

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the CodePipeline client used by Client.
type API interface {
	GetPipelineExecution(ctx context.Context, params *codepipeline.GetPipelineExecutionInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineExecutionOutput, error)
	GetPipeline(ctx context.Context, params *codepipeline.GetPipelineInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineOutput, error)
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
	ListActionExecutions(ctx context.Context, params *codepipeline.ListActionExecutionsInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListActionExecutionsOutput, error)
}

// Fetcher loads the data a report needs for one execution.
type Fetcher interface {
	Fetch(ctx context.Context, pipeline, execID string) (*ExecutionData, error)
}

// Client fetches execution data from the pipeline service.
type Client struct {
	api API
}

// NewClient returns a Client using api.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// Fetch issues the execution, definition, state and action-execution
// queries concurrently. A failed action listing is stored on the result
// rather than returned.
func (c *Client) Fetch(ctx context.Context, pipeline, execID string) (*ExecutionData, error) {
	data := &ExecutionData{PipelineName: pipeline, ExecutionID: execID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := c.api.GetPipelineExecution(gctx, &codepipeline.GetPipelineExecutionInput{
			PipelineName:        aws.String(pipeline),
			PipelineExecutionId: aws.String(execID),
		})
		if err != nil {
			return &APIError{Op: "GetPipelineExecution", Pipeline: pipeline, Cause: err}
		}
		revisions, status := convertExecution(out.PipelineExecution)
		mu.Lock()
		data.Revisions = revisions
		data.Status = status
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		out, err := c.api.GetPipeline(gctx, &codepipeline.GetPipelineInput{Name: aws.String(pipeline)})
		if err != nil {
			return &APIError{Op: "GetPipeline", Pipeline: pipeline, Cause: err}
		}
		if out.Pipeline != nil && out.Pipeline.Version != nil {
			mu.Lock()
			data.PipelineVersion = *out.Pipeline.Version
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		out, err := c.api.GetPipelineState(gctx, &codepipeline.GetPipelineStateInput{Name: aws.String(pipeline)})
		if err != nil {
			return &APIError{Op: "GetPipelineState", Pipeline: pipeline, Cause: err}
		}
		statuses := make(map[string]string, len(out.StageStates))
		for _, st := range out.StageStates {
			if st.LatestExecution != nil {
				statuses[aws.ToString(st.StageName)] = string(st.LatestExecution.Status)
			}
		}
		mu.Lock()
		data.StageStatuses = statuses
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		actions, err := c.listActionExecutions(gctx, pipeline, execID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Printf("[report] listing action executions for %s/%s failed (aws-sdk-go-v2 %s): %v",
				pipeline, execID, aws.SDKVersion, err)
			data.ActionExecutionsErr = &APIError{Op: "ListActionExecutions", Pipeline: pipeline, Cause: err}
			return nil
		}
		data.ActionExecutions = actions
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) listActionExecutions(ctx context.Context, pipeline, execID string) ([]ActionExecution, error) {
	paginator := codepipeline.NewListActionExecutionsPaginator(c.api, &codepipeline.ListActionExecutionsInput{
		PipelineName: aws.String(pipeline),
		Filter: &types.ActionExecutionFilter{
			PipelineExecutionId: aws.String(execID),
		},
	})

	var actions []ActionExecution
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, detail := range page.ActionExecutionDetails {
			actions = append(actions, convertActionExecution(detail))
		}
	}
	return actions, nil
}

func convertExecution(pe *types.PipelineExecution) ([]Revision, string) {
	if pe == nil {
		return nil, ""
	}
	revisions := make([]Revision, 0, len(pe.ArtifactRevisions))
	for _, r := range pe.ArtifactRevisions {
		revisions = append(revisions, Revision{
			ID:      aws.ToString(r.RevisionId),
			Summary: aws.ToString(r.RevisionSummary),
			URL:     aws.ToString(r.RevisionUrl),
		})
	}
	return revisions, string(pe.Status)
}

func convertActionExecution(detail types.ActionExecutionDetail) ActionExecution {
	ae := ActionExecution{
		ActionName: aws.ToString(detail.ActionName),
		StageName:  aws.ToString(detail.StageName),
		Status:     string(detail.Status),
	}
	if detail.Output == nil {
		return ae
	}
	for _, artifact := range detail.Output.OutputArtifacts {
		var loc ArtifactLocation
		if artifact.S3location != nil {
			loc = ArtifactLocation{
				Bucket: aws.ToString(artifact.S3location.Bucket),
				Key:    aws.ToString(artifact.S3location.Key),
			}
		}
		ae.OutputArtifacts = append(ae.OutputArtifacts, loc)
	}
	return ae
}

var _ Fetcher = (*Client)(nil)
