// Package s3fs implements the fs.Backend contract on Amazon S3 or any
// S3-compatible object store (MinIO, Localstack, Cubbit DS3, etc.).
package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/driftfs/driftfs/pkg/fs"
)

// S3Backend implements fs.Backend on an S3 bucket.
//
// Path-Based Key Design:
//   - A file at contract path "a/b/c" is the object "<prefix>a/b/c"
//   - A directory at "a/b" is the zero-byte marker object "<prefix>a/b/"
//   - The bucket mirrors the tree and stays human-inspectable
//
// S3 Characteristics:
//   - Rename is copy-then-delete; a crash between the two can leave both
//     names bound. Readers still never observe partial content, because
//     every object appears atomically.
//   - TryLock uses conditional PUT (If-None-Match: *), so lock creation is
//     atomic across all clients of the bucket.
//   - Output handles buffer locally and upload on Flush and Close; there is
//     no partial-content visibility on this backend.
//
// Thread Safety:
// Safe for concurrent use by multiple goroutines; individual handles are not.
type S3Backend struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	clock     fs.Clock
	ctx       context.Context
}

// Config contains configuration for an S3Backend.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys,
	// e.g. "driftfs/" yields keys like "driftfs/a/b/c".
	KeyPrefix string

	// Clock supplies lock claim timestamps. Nil means the system clock.
	Clock fs.Clock
}

// NewS3Backend verifies bucket access and returns the backend.
//
// ctx is retained and governs every request the backend issues; cancel it
// to stop all in-flight and future S3 calls.
func NewS3Backend(ctx context.Context, cfg Config) (*S3Backend, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = fs.SystemClock{}
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Backend{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		clock:     clock,
		ctx:       ctx,
	}, nil
}

// Healthcheck verifies the bucket is still reachable.
func (s *S3Backend) Healthcheck() error {
	_, err := s.client.HeadBucket(s.ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	return nil
}

// ============================================================================
// Keys and Error Mapping
// ============================================================================

func normalize(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		return ""
	}
	return p
}

// isRoot accepts "." because path.Dir yields it for top-level names.
func isRoot(p string) bool { return p == "" || p == "." }

func (s *S3Backend) fileKey(p string) string { return s.keyPrefix + p }

func (s *S3Backend) dirKey(p string) string { return s.keyPrefix + p + "/" }

// wrapErr maps S3 API errors onto the package sentinels.
func wrapErr(op, p string, err error) error {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrNotFound, err)
		case "AccessDenied":
			return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrPermission, err)
		case "PreconditionFailed", "ConditionalRequestConflict":
			return fmt.Errorf("%s %s: %w: %w", op, p, fs.ErrAlreadyExists, err)
		}
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "PreconditionFailed" ||
			apiErr.ErrorCode() == "ConditionalRequestConflict")
}

// dirExists reports whether p is the root or has a directory marker.
func (s *S3Backend) dirExists(p string) (bool, error) {
	if isRoot(p) {
		return true, nil
	}
	_, err := s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dirKey(p)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// ============================================================================
// Open Operations
// ============================================================================

// OpenInput opens the named object for streaming reads.
func (s *S3Backend) OpenInput(filename string) (fs.InputFile, error) {
	filename = normalize(filename)

	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(filename)),
	})
	if err != nil {
		return nil, wrapErr("open", filename, err)
	}
	return &inputFile{name: filename, body: out.Body}, nil
}

// OpenOutput opens the named object for writing. Content buffers locally
// and uploads as one object on Flush and Close. Appending first downloads
// the existing content.
func (s *S3Backend) OpenOutput(filename string, append bool) (fs.OutputFile, error) {
	filename = normalize(filename)

	ok, err := s.dirExists(path.Dir(filename))
	if err != nil {
		return nil, wrapErr("open", filename, err)
	}
	if !ok {
		return nil, fmt.Errorf("open %s: parent: %w", filename, fs.ErrNotFound)
	}

	var initial []byte
	if append {
		out, gerr := s.client.GetObject(s.ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.fileKey(filename)),
		})
		switch {
		case gerr == nil:
			initial, gerr = io.ReadAll(out.Body)
			_ = out.Body.Close()
			if gerr != nil {
				return nil, wrapErr("open", filename, gerr)
			}
		case !isNotFound(gerr):
			return nil, wrapErr("open", filename, gerr)
		}
	}
	return &outputFile{store: s, name: filename, buf: initial}, nil
}

// OpenTemp creates and opens a uniquely named object starting with prefix.
func (s *S3Backend) OpenTemp(prefix string) (fs.OutputFile, error) {
	prefix = normalize(prefix)

	ok, err := s.dirExists(path.Dir(prefix))
	if err != nil {
		return nil, wrapErr("open temp", prefix, err)
	}
	if !ok {
		return nil, fmt.Errorf("open temp %s: parent: %w", prefix, fs.ErrNotFound)
	}

	filename := prefix + "." + uuid.NewString()
	if err := s.put(filename, nil); err != nil {
		return nil, err
	}
	return &outputFile{store: s, name: filename}, nil
}

// put uploads data as the full content of the named object.
func (s *S3Backend) put(filename string, data []byte) error {
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(filename)),
		Body:   strings.NewReader(string(data)),
	})
	if err != nil {
		return wrapErr("write", filename, err)
	}
	return nil
}

// ============================================================================
// File and Directory Operations
// ============================================================================

// Remove deletes the named object. S3 DeleteObject succeeds on missing
// keys, so existence is checked first to honor the contract.
func (s *S3Backend) Remove(filename string) error {
	filename = normalize(filename)

	if _, err := s.head(s.fileKey(filename)); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("remove %s: %w", filename, fs.ErrNotFound)
		}
		return wrapErr("remove", filename, err)
	}
	_, err := s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(filename)),
	})
	if err != nil {
		return wrapErr("remove", filename, err)
	}
	return nil
}

// Rename moves oldName onto newName by copy-then-delete. The copy appears
// atomically, but the operation as a whole is not: a failure after the copy
// leaves the object under both names.
func (s *S3Backend) Rename(oldName, newName string) error {
	oldName = normalize(oldName)
	newName = normalize(newName)

	ok, err := s.dirExists(path.Dir(newName))
	if err != nil {
		return wrapErr("rename", newName, err)
	}
	if !ok {
		return fmt.Errorf("rename to %s: parent: %w", newName, fs.ErrNotFound)
	}

	_, err = s.client.CopyObject(s.ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.fileKey(oldName)),
		Key:        aws.String(s.fileKey(newName)),
	})
	if err != nil {
		return wrapErr("rename", oldName, err)
	}
	_, err = s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(oldName)),
	})
	if err != nil {
		return wrapErr("rename", oldName, err)
	}
	return nil
}

// MakeDir creates a directory marker; the parent must already exist.
func (s *S3Backend) MakeDir(dir string) error {
	dir = normalize(dir)
	if isRoot(dir) {
		return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
	}

	ok, err := s.dirExists(path.Dir(dir))
	if err != nil {
		return wrapErr("mkdir", dir, err)
	}
	if !ok {
		return fmt.Errorf("mkdir %s: parent: %w", dir, fs.ErrNotFound)
	}

	_, err = s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.dirKey(dir)),
		Body:        strings.NewReader(""),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("mkdir %s: %w", dir, fs.ErrAlreadyExists)
		}
		return wrapErr("mkdir", dir, err)
	}
	return nil
}

// RemoveDir removes the named directory marker if nothing lives under it.
func (s *S3Backend) RemoveDir(dir string) error {
	dir = normalize(dir)

	if _, err := s.head(s.dirKey(dir)); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotFound)
		}
		return wrapErr("rmdir", dir, err)
	}

	out, err := s.client.ListObjectsV2(s.ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirKey(dir)),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return wrapErr("rmdir", dir, err)
	}
	for _, obj := range out.Contents {
		if aws.ToString(obj.Key) != s.dirKey(dir) {
			return fmt.Errorf("rmdir %s: %w", dir, fs.ErrNotEmpty)
		}
	}

	_, err = s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dirKey(dir)),
	})
	if err != nil {
		return wrapErr("rmdir", dir, err)
	}
	return nil
}

// Exists answers whether the path exists as a file or directory.
func (s *S3Backend) Exists(p string) fs.BoolOrError {
	p = normalize(p)
	if isRoot(p) {
		return fs.Bool(true)
	}

	for _, key := range []string{s.fileKey(p), s.dirKey(p)} {
		_, err := s.head(key)
		if err == nil {
			return fs.Bool(true)
		}
		if !isNotFound(err) {
			return fs.ErrorResult()
		}
	}
	return fs.Bool(false)
}

// IsDir answers whether the path exists and is a directory.
func (s *S3Backend) IsDir(p string) fs.BoolOrError {
	p = normalize(p)
	if isRoot(p) {
		return fs.Bool(true)
	}

	_, err := s.head(s.dirKey(p))
	if err == nil {
		return fs.Bool(true)
	}
	if !isNotFound(err) {
		return fs.ErrorResult()
	}
	return fs.Bool(false)
}

// ListContents returns the full contract paths of the direct entries of dir,
// using delimiter listing so only one level is scanned.
func (s *S3Backend) ListContents(dir string) ([]string, error) {
	dir = normalize(dir)

	ok, err := s.dirExists(dir)
	if err != nil {
		return nil, wrapErr("list", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("list %s: %w", dir, fs.ErrNotFound)
	}

	prefix := s.keyPrefix
	if !isRoot(dir) {
		prefix = s.dirKey(dir)
	}

	var contents []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, wrapErr("list", dir, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				continue // the marker for dir itself
			}
			contents = append(contents, strings.TrimPrefix(key, s.keyPrefix))
		}
		for _, cp := range page.CommonPrefixes {
			key := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			contents = append(contents, strings.TrimPrefix(key, s.keyPrefix))
		}
	}
	sort.Strings(contents)
	return contents, nil
}

// ============================================================================
// Stat Operations
// ============================================================================

func (s *S3Backend) head(key string) (*s3.HeadObjectOutput, error) {
	return s.client.HeadObject(s.ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
}

// statHead finds the object for p, trying the file key then the dir marker.
func (s *S3Backend) statHead(p string) (*s3.HeadObjectOutput, error) {
	p = normalize(p)

	for _, key := range []string{s.fileKey(p), s.dirKey(p)} {
		out, err := s.head(key)
		if err == nil {
			return out, nil
		}
		if !isNotFound(err) {
			return nil, wrapErr("stat", p, err)
		}
	}
	return nil, fmt.Errorf("stat %s: %w", p, fs.ErrNotFound)
}

// Atime returns the last modification time; S3 does not track access times,
// so this is the closest observable signal.
func (s *S3Backend) Atime(p string) (int64, error) {
	return s.Mtime(p)
}

// Mtime returns the last modification time of the path in seconds since
// the epoch.
func (s *S3Backend) Mtime(p string) (int64, error) {
	out, err := s.statHead(p)
	if err != nil {
		return 0, err
	}
	if out.LastModified == nil {
		return 0, fmt.Errorf("stat %s: response missing LastModified", p)
	}
	return out.LastModified.Unix(), nil
}

// Size returns the size of the named object in bytes.
func (s *S3Backend) Size(p string) (int64, error) {
	out, err := s.statHead(p)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}
