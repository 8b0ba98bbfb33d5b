package client

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/config"
	"github.com/relionflow/api/internal/model"
)

type fakePutter struct {
	objects map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.objects[*in.Key] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveJobLogs(t *testing.T) {
	root := t.TempDir()
	job := &model.JobRecord{ProjectID: "p1", ProjectRoot: root, OutputDir: "Refine3D/job010/"}
	dir := filepath.Join(root, job.OutputDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.out"), []byte("iteration 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.err"), []byte(""), 0o644))

	putter := &fakePutter{objects: map[string]string{}}
	a := &S3Archiver{s3Client: putter, bucket: "logs", prefix: "relion"}
	keys, err := a.ArchiveJobLogs(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"relion/p1/Refine3D/job010/run.out", "relion/p1/Refine3D/job010/run.err"}, keys)
	assert.Equal(t, "iteration 1", putter.objects["relion/p1/Refine3D/job010/run.out"])
}

func TestArchiveJobLogs_UploadError(t *testing.T) {
	root := t.TempDir()
	job := &model.JobRecord{ProjectID: "p1", ProjectRoot: root, OutputDir: "Import/job001/"}
	require.NoError(t, os.MkdirAll(filepath.Join(root, job.OutputDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, job.OutputDir, "run.out"), []byte("x"), 0o644))

	a := &S3Archiver{s3Client: &fakePutter{err: errors.New("denied")}, bucket: "logs"}
	_, err := a.ArchiveJobLogs(context.Background(), job)
	assert.ErrorContains(t, err, "denied")
}

func TestNewS3Archiver_Incomplete(t *testing.T) {
	_, err := NewS3Archiver(&config.ArchiveConfig{Bucket: "logs"})
	assert.Error(t, err)
}
