package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/config"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/notify"
	"github.com/jonathan/pipeline-observer/internal/observer"
)

// loadConfig merges the config file over the environment over the defaults.
// override, when set, adjusts the merged values before validation.
func loadConfig(override func(*config.Config)) (*config.ObserverConfig, error) {
	env, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	merged := env.MergeWithDefaults(config.Defaults())

	if configPath != "" {
		file, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		merged = file.MergeWithDefaults(merged)
	}
	if override != nil {
		override(&merged)
	}
	return merged.Build()
}

// deps holds the clients built once per process.
type deps struct {
	store     jobs.Store
	fetcher   executions.Fetcher
	extractor *artifacts.Extractor
	publisher notify.Publisher
	closers   []func()
}

func (d *deps) Close() {
	for _, c := range d.closers {
		c()
	}
}

func (d *deps) handler(cfg *config.ObserverConfig) *observer.Handler {
	return observer.NewHandler(d.store, d.reporter(cfg), observer.OptionsFromConfig(cfg))
}

func (d *deps) reporter(cfg *config.ObserverConfig) *observer.Reporter {
	return observer.NewReporter(d.fetcher, d.store, d.extractor, d.publisher, cfg.TestActionName)
}

// buildDeps constructs AWS-backed dependencies. A non-nil dryRun writer
// replaces the topic publisher.
func buildDeps(ctx context.Context, cfg *config.ObserverConfig, dryRun io.Writer) (*deps, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	d := &deps{}
	store, closer, err := newStore(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	d.store = store
	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	d.fetcher = executions.NewClient(codepipeline.NewFromConfig(awsCfg))
	d.extractor = artifacts.NewExtractor(
		artifacts.NewS3Source(s3.NewFromConfig(awsCfg)),
		artifacts.Files{Lint: cfg.LintFile, Test: cfg.TestFile, Coverage: cfg.CoverageFile},
		cfg.ScratchDir,
	)

	if dryRun != nil {
		d.publisher = notify.NewWriterPublisher(dryRun)
	} else {
		if err := cfg.RequirePublishing(); err != nil {
			d.Close()
			return nil, err
		}
		d.publisher = notify.NewSNSPublisher(sns.NewFromConfig(awsCfg), cfg.TopicARN)
	}
	return d, nil
}

func newStore(ctx context.Context, cfg *config.ObserverConfig, awsCfg aws.Config) (jobs.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		return jobs.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.JobTable), nil, nil
	case config.BackendPostgres:
		store, err := jobs.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to prepare job_records table: %w", err)
		}
		return store, store.Close, nil
	case config.BackendMemory:
		log.Printf("[observer] using in-memory job store; records do not outlive this process")
		return jobs.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown job store backend %q", cfg.StoreBackend)
	}
}
