package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/apicatalog/pkg/storage"
)

type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	metadata  map[string]map[string]string
	bucket    bool
	created   int
	putErr    error
	createErr error
}

func newFakeS3(bucketExists bool) *fakeS3 {
	return &fakeS3{
		objects:  make(map[string][]byte),
		metadata: make(map[string]map[string]string),
		bucket:   bucketExists,
	}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	f.metadata[aws.ToString(in.Key)] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucket = true
	return &s3.CreateBucketOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3(true)
	store := NewS3StoreWithClient(fake, "descriptions")

	key := storage.OriginalKey("65f1c2a9b3e4d5f6a7b8c9d0")
	require.NoError(t, store.PutObject(ctx, key, []byte("openapi: 3.1.0"), "application/yaml"))
	assert.Len(t, fake.metadata[key]["checksum-sha256"], 64)

	data, err := store.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.1.0", string(data))

	require.NoError(t, store.DeleteObject(ctx, key))
	_, err = store.GetObject(ctx, key)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeS3(true)
	fake.putErr = errors.New("access denied")
	store := NewS3StoreWithClient(fake, "descriptions")

	err := store.PutObject(context.Background(), "k", []byte("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Store_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	fake := newFakeS3(true)
	require.NoError(t, NewS3StoreWithClient(fake, "b").EnsureBucket(ctx))
	assert.Zero(t, fake.created)

	fake = newFakeS3(false)
	require.NoError(t, NewS3StoreWithClient(fake, "b").EnsureBucket(ctx))
	assert.Equal(t, 1, fake.created)

	fake = newFakeS3(false)
	fake.createErr = &types.BucketAlreadyOwnedByYou{}
	assert.NoError(t, NewS3StoreWithClient(fake, "b").EnsureBucket(ctx))

	fake = newFakeS3(false)
	fake.createErr = errors.New("forbidden")
	assert.Error(t, NewS3StoreWithClient(fake, "b").EnsureBucket(ctx))
}

func TestS3Store_Ping(t *testing.T) {
	assert.NoError(t, NewS3StoreWithClient(newFakeS3(true), "b").Ping(context.Background()))
	assert.Error(t, NewS3StoreWithClient(newFakeS3(false), "b").Ping(context.Background()))
}

func TestS3Store_BacksDescriptions(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3(true)
	store := storage.NewWithBlobs(storage.NewMemoryStore(), NewS3StoreWithClient(fake, "b"))

	d := &storage.Description{Title: "Pets", Original: []byte("openapi: 3.1.0")}
	require.NoError(t, store.Put(ctx, d))
	assert.Contains(t, fake.objects, storage.OriginalKey(d.ID))

	got, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Original, got.Original)
}
