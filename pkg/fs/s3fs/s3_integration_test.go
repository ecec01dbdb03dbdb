//go:build integration
// +build integration

package s3fs_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/fs"
	"github.com/driftfs/driftfs/pkg/fs/fstesting"
	"github.com/driftfs/driftfs/pkg/fs/s3fs"
)

// TestS3Backend_Integration runs the backend conformance suite against a
// real S3-compatible service (Localstack or MinIO).
//
// Prerequisites:
//   - Localstack running on localhost:4566 (or set LOCALSTACK_ENDPOINT)
//   - Run with: go test -tags=integration ./pkg/fs/s3fs/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Backend_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", "test", "",
		)),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for Localstack
	})

	bucketName := "driftfs-test-bucket"
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}
	t.Cleanup(func() { cleanupBucket(ctx, client, bucketName) })

	suite := &fstesting.BackendTestSuite{
		NewBackend: func(t *testing.T) (fs.Backend, *fstesting.ManualClock) {
			// A fresh key prefix isolates each test inside the shared bucket.
			backend, err := s3fs.NewS3Backend(ctx, s3fs.Config{
				Client:    client,
				Bucket:    bucketName,
				KeyPrefix: fmt.Sprintf("run-%s/", uuid.NewString()),
			})
			if err != nil {
				t.Fatalf("Failed to create S3 backend: %v", err)
			}
			// Lock claim ages come from object LastModified, so the
			// deterministic timeout tests do not apply.
			return backend, nil
		},
	}
	suite.Run(t)
}

func cleanupBucket(ctx context.Context, client *s3.Client, bucket string) {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return
		}
		for _, obj := range page.Contents {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			})
		}
	}
	_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
}
