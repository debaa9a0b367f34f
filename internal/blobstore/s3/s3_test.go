package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.HeadBucketOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.CreateBucketOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListBuckets(ctx context.Context, in *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListBucketsOutput)
	return out, args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*manager.UploadOutput)
	return out, args.Error(1)
}

func bucketIs(name string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		switch v := in.(type) {
		case *s3.HeadBucketInput:
			return aws.ToString(v.Bucket) == name
		case *s3.CreateBucketInput:
			return aws.ToString(v.Bucket) == name
		case *s3.ListObjectsV2Input:
			return aws.ToString(v.Bucket) == name
		}
		return false
	})
}

func TestListArtifactsReadsMetadata(t *testing.T) {
	api := new(mockAPI)
	gw := NewWithClient(api, new(mockUploader), "us-east-1", "http://localhost:9000", nil)
	ctx := context.Background()
	modified := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	api.On("ListObjectsV2", ctx, bucketIs("acme")).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{
			Key:          aws.String("01HZX/build.zip"),
			Size:         aws.Int64(42),
			LastModified: aws.Time(modified),
		}},
		IsTruncated: aws.Bool(false),
	}, nil)
	api.On("HeadObject", ctx, mock.Anything).Return(&s3.HeadObjectOutput{
		ContentType: aws.String("application/zip"),
		Metadata: map[string]string{
			"Name":           "Safety Build",
			"Version":        "1.2",
			"Internalid":     "01HZX",
			"Organizationid": "77",
		},
	}, nil)

	artifacts, err := gw.ListArtifacts(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	a := artifacts[0]
	assert.Equal(t, "01HZX/build.zip", a.ID)
	assert.Equal(t, "01HZX", a.InternalID)
	assert.Equal(t, "Safety Build", a.Name)
	assert.Equal(t, "1.2", a.Version)
	assert.Equal(t, "77", a.OrganizationID())
	assert.Equal(t, int64(42), a.Size)
	assert.Equal(t, modified, a.LastModified)
	assert.Equal(t, "http://localhost:9000/acme/01HZX/build.zip", a.URL)
	api.AssertExpectations(t)
}

func TestListArtifactsMissingBucketIsEmpty(t *testing.T) {
	api := new(mockAPI)
	gw := NewWithClient(api, new(mockUploader), "us-east-1", "", nil)
	ctx := context.Background()

	api.On("ListObjectsV2", ctx, bucketIs("ghost")).Return(nil, &types.NoSuchBucket{})

	artifacts, err := gw.ListArtifacts(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestUploadCreatesMissingBucket(t *testing.T) {
	api := new(mockAPI)
	up := new(mockUploader)
	gw := NewWithClient(api, up, "us-east-1", "http://minio:9000", nil)
	ctx := context.Background()

	api.On("HeadBucket", ctx, bucketIs("acme")).Return(nil, &types.NotFound{})
	api.On("CreateBucket", ctx, bucketIs("acme")).Return(&s3.CreateBucketOutput{}, nil)

	var uploaded *s3.PutObjectInput
	up.On("Upload", ctx, mock.Anything).Run(func(args mock.Arguments) {
		uploaded = args.Get(1).(*s3.PutObjectInput)
	}).Return(&manager.UploadOutput{ETag: aws.String(`"abc"`)}, nil)

	res, err := gw.UploadArtifact(ctx, "acme", "build.zip", strings.NewReader("payload"), blobstore.UploadMetadata{
		Name:           "Safety Build",
		Version:        "2",
		OrganizationID: "77",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc", res.ETag)
	assert.Equal(t, res.InternalID+"/build.zip", res.ID)
	assert.Equal(t, "http://minio:9000/acme/"+res.ID, res.URL)
	require.NotNil(t, uploaded)
	assert.Equal(t, res.ID, aws.ToString(uploaded.Key))
	assert.Equal(t, res.InternalID, uploaded.Metadata[blobstore.MetaInternalID])
	assert.Equal(t, "77", uploaded.Metadata[blobstore.MetaOrganizationID])
	api.AssertExpectations(t)
	up.AssertExpectations(t)
}

func TestUploadRejectsBadContainer(t *testing.T) {
	gw := NewWithClient(new(mockAPI), new(mockUploader), "us-east-1", "", nil)

	_, err := gw.UploadArtifact(context.Background(), "a:b", "build.zip", strings.NewReader("x"), blobstore.UploadMetadata{})
	assert.ErrorIs(t, err, blobstore.ErrInvalidContainer)
}

func TestDeleteMissingArtifact(t *testing.T) {
	api := new(mockAPI)
	gw := NewWithClient(api, new(mockUploader), "us-east-1", "", nil)
	ctx := context.Background()

	api.On("HeadObject", ctx, mock.Anything).Return(nil, &types.NotFound{})

	err := gw.DeleteArtifact(ctx, "acme", "01HZX/build.zip")
	assert.ErrorIs(t, err, blobstore.ErrArtifactNotFound)
	api.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}

func TestListContainersUpstreamFailure(t *testing.T) {
	api := new(mockAPI)
	gw := NewWithClient(api, new(mockUploader), "us-east-1", "", nil)
	ctx := context.Background()

	api.On("ListBuckets", ctx, mock.Anything).Return(nil, assert.AnError)

	_, err := gw.ListContainers(ctx)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamFailure, apperr.KindOf(err))
}
