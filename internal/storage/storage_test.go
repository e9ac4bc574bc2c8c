package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/index-compare/internal/config"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func TestLocalStorageLifecycle(t *testing.T) {
	store, err := NewLocalStorage(&config.LocalStorageConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/api/index-compare/chart/snapshots/",
	})
	require.NoError(t, err)
	ctx := context.Background()

	snap, err := store.Store(ctx, pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "local", snap.StorageType)
	assert.Equal(t, "/api/index-compare/chart/snapshots/"+snap.ID, snap.URL)
	assert.Equal(t, int64(len(pngBytes)), snap.Size)

	rc, meta, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, snap.ID, meta.ID)

	require.NoError(t, store.Delete(ctx, snap.ID))
	_, _, err = store.Get(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, snap.ID), ErrNotFound)
}

func TestLocalStorageRejectsForeignIDs(t *testing.T) {
	store, err := NewLocalStorage(&config.LocalStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  aws.Time(time.Now()),
	}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	client *fakeS3
	inputs []*s3manager.UploadInput
}

func (u *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return u.UploadWithContext(context.Background(), in, opts...)
}

func (u *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.inputs = append(u.inputs, in)
	u.client.objects[aws.StringValue(in.Key)] = data
	return &s3manager.UploadOutput{}, nil
}

func TestS3StorageLifecycle(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	uploader := &fakeUploader{client: client}
	store := newS3Storage("charts-bucket", "https://cdn.example.com/", "/charts/", client, uploader)
	ctx := context.Background()

	snap, err := store.Store(ctx, pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "charts/"+snap.ID+".png", snap.StoragePath)
	assert.Equal(t, "https://cdn.example.com/charts/"+snap.ID+".png", snap.URL)
	require.Len(t, uploader.inputs, 1)
	assert.Equal(t, "image/png", aws.StringValue(uploader.inputs[0].ContentType))
	assert.Equal(t, "charts-bucket", aws.StringValue(uploader.inputs[0].Bucket))

	rc, meta, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, int64(len(pngBytes)), meta.Size)

	require.NoError(t, store.Delete(ctx, snap.ID))
	_, _, err = store.Get(ctx, snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStorageDefaultsToLocal(t *testing.T) {
	store, err := NewStorage(&config.StorageConfig{Local: config.LocalStorageConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)
}
