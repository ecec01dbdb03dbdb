package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/badgerfs"
	"github.com/driftfs/driftfs/pkg/fs/disk"
	"github.com/driftfs/driftfs/pkg/fs/memory"
	"github.com/driftfs/driftfs/pkg/fs/s3fs"
	"github.com/driftfs/driftfs/pkg/metrics"
)

// CreateFileSystem builds the configured backend and wraps it in the
// filesystem abstraction. The returned closer releases backend resources
// (for backends that hold any) and must be called on shutdown.
func CreateFileSystem(ctx context.Context, cfg *Config) (*fs.FS, func() error, error) {
	backend, closer, err := CreateBackend(ctx, &cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	// No-op unless the metrics registry has been initialized.
	backend = metrics.Instrument(cfg.Backend.Type, backend)
	return fs.New(backend, fs.LogHandler{}), closer, nil
}

// CreateBackend builds a backend from its configuration section.
func CreateBackend(ctx context.Context, cfg *BackendConfig) (fs.Backend, func() error, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryBackend(nil), noopCloser, nil
	case "disk":
		return createDiskBackend(cfg.Disk)
	case "badger":
		return createBadgerBackend(cfg.Badger)
	case "s3":
		return createS3Backend(ctx, cfg.S3)
	default:
		return nil, nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}

func noopCloser() error { return nil }

// createDiskBackend creates a local-disk backend.
func createDiskBackend(options map[string]any) (fs.Backend, func() error, error) {
	type DiskBackendConfig struct {
		Root string `mapstructure:"root"`
	}

	var backendCfg DiskBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode disk backend config: %w", err)
	}

	if backendCfg.Root == "" {
		return nil, nil, fmt.Errorf("disk backend: root is required")
	}

	backend, err := disk.NewDiskBackend(backendCfg.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create disk backend: %w", err)
	}
	return backend, noopCloser, nil
}

// createBadgerBackend creates a BadgerDB-backed backend.
func createBadgerBackend(options map[string]any) (fs.Backend, func() error, error) {
	type BadgerBackendConfig struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var backendCfg BadgerBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode badger backend config: %w", err)
	}

	if backendCfg.Path == "" && !backendCfg.InMemory {
		return nil, nil, fmt.Errorf("badger backend: path is required unless in_memory is set")
	}

	backend, err := badgerfs.NewBadgerBackend(badgerfs.Config{
		Path:     backendCfg.Path,
		InMemory: backendCfg.InMemory,
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create badger backend: %w", err)
	}
	return backend, backend.Close, nil
}

// createS3Backend creates an S3-backed backend.
func createS3Backend(ctx context.Context, options map[string]any) (fs.Backend, func() error, error) {
	type S3BackendConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var backendCfg S3BackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode S3 backend config: %w", err)
	}

	if backendCfg.Bucket == "" {
		return nil, nil, fmt.Errorf("S3 backend: bucket is required")
	}
	if backendCfg.Region == "" {
		return nil, nil, fmt.Errorf("S3 backend: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(backendCfg.Region))

	// Custom endpoint support for MinIO, Localstack, etc.
	if backendCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               backendCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials when provided, otherwise the default chain.
	if backendCfg.AccessKeyID != "" && backendCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			backendCfg.AccessKeyID,
			backendCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := backendCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for MinIO/Localstack compatibility.
		if backendCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	backend, err := s3fs.NewS3Backend(ctx, s3fs.Config{
		Client:    client,
		Bucket:    backendCfg.Bucket,
		KeyPrefix: backendCfg.KeyPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}
	return backend, noopCloser, nil
}
