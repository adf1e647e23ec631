package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := NewS3StorageWithClient(fake, "scores")
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "reports/run-1.json", strings.NewReader(`{"ok":true}`)))
	require.Contains(t, fake.objects, "scores/reports/run-1.json")

	rc, err := store.Download(ctx, "reports/run-1.json")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))

	_, err = store.Download(ctx, "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "download missing")
}

func TestKeys(t *testing.T) {
	require.Equal(t, "sheets/run-1/scores.xlsx", SheetKey("run-1", "../../scores.xlsx"))
	require.Equal(t, "reports/run-1.json", ReportKey("", "run-1"))
	require.Equal(t, "batch/out/run-1.json", ReportKey("batch/out", "run-1"))
}
