package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/relionflow/api/internal/config"
	"github.com/relionflow/api/internal/model"
)

// archivedFiles are copied from a finished job's directory.
var archivedFiles = []string{"run.out", "run.err", "run_submit.script", "note.txt"}

// LogArchiver copies the logs of finished jobs to object storage.
type LogArchiver interface {
	ArchiveJobLogs(ctx context.Context, job *model.JobRecord) ([]string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver implements LogArchiver for any S3-compatible store.
type S3Archiver struct {
	s3Client objectPutter
	bucket   string
	prefix   string
}

// NewS3Archiver creates an archiver from cfg. A custom endpoint selects
// path-style addressing for MinIO and similar servers.
func NewS3Archiver(cfg *config.ArchiveConfig) (*S3Archiver, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("archive configuration incomplete")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &S3Archiver{s3Client: s3Client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ArchiveJobLogs uploads the log files present in the job directory and
// returns their object keys. Missing files are skipped.
func (a *S3Archiver) ArchiveJobLogs(ctx context.Context, job *model.JobRecord) ([]string, error) {
	dir := filepath.Join(job.ProjectRoot, job.OutputDir)
	var keys []string
	for _, name := range archivedFiles {
		f, err := os.Open(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return keys, err
		}
		key := a.objectKey(job, name)
		_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String("text/plain"),
		})
		f.Close()
		if err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *S3Archiver) objectKey(job *model.JobRecord, name string) string {
	return path.Join(a.prefix, job.ProjectID, job.OutputDir, name)
}
