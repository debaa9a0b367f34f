// Package s3 stores artifacts in an S3-compatible service. Each container is a bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/smallbiznis/formationdesk/internal/apperr"
	"github.com/smallbiznis/formationdesk/internal/blobstore"
	"go.uber.org/zap"
)

// API is the subset of the S3 client the gateway calls.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

type Gateway struct {
	client   API
	uploader Uploader
	region   string
	baseURL  string
	log      *zap.Logger
}

// New builds a client from static credentials when given, else the default chain.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Gateway, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}
	return NewWithClient(client, manager.NewUploader(client), cfg.Region, baseURL, log), nil
}

func NewWithClient(client API, uploader Uploader, region, baseURL string, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		client:   client,
		uploader: uploader,
		region:   region,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log.Named("blobstore.s3"),
	}
}

func (g *Gateway) ListArtifacts(ctx context.Context, container string) ([]blobstore.Artifact, error) {
	if err := blobstore.ValidateContainer(container); err != nil {
		return nil, err
	}

	var out []blobstore.Artifact
	var token *string
	for {
		page, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(container),
			ContinuationToken: token,
		})
		if err != nil {
			if isMissingBucket(err) {
				return []blobstore.Artifact{}, nil
			}
			return nil, apperr.Upstream("blobstore_list_failed", err)
		}

		for _, obj := range page.Contents {
			artifact, err := g.describe(ctx, container, obj)
			if err != nil {
				return nil, err
			}
			out = append(out, artifact)
		}

		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		token = page.NextContinuationToken
	}

	if out == nil {
		out = []blobstore.Artifact{}
	}
	return out, nil
}

// describe reads user metadata, which object listings do not carry.
func (g *Gateway) describe(ctx context.Context, container string, obj types.Object) (blobstore.Artifact, error) {
	key := aws.ToString(obj.Key)
	head, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return blobstore.Artifact{}, apperr.Upstream("blobstore_head_failed", err)
	}

	artifact := blobstore.ArtifactFromMetadata(key, head.Metadata)
	artifact.ContentType = aws.ToString(head.ContentType)
	artifact.Size = aws.ToInt64(obj.Size)
	artifact.LastModified = aws.ToTime(obj.LastModified)
	artifact.URL = g.url(container, key)
	return artifact, nil
}

func (g *Gateway) UploadArtifact(ctx context.Context, container, fileName string, body io.Reader, meta blobstore.UploadMetadata) (*blobstore.UploadResult, error) {
	if err := blobstore.ValidateContainer(container); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, blobstore.ErrInvalidFileName
	}
	if err := g.ensureBucket(ctx, container); err != nil {
		return nil, err
	}

	internalID := blobstore.NewInternalID()
	key := blobstore.BlobName(internalID, fileName)
	input := &s3.PutObjectInput{
		Bucket:   aws.String(container),
		Key:      aws.String(key),
		Body:     body,
		Metadata: meta.Map(internalID),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}

	out, err := g.uploader.Upload(ctx, input)
	if err != nil {
		return nil, apperr.Upstream("blobstore_upload_failed", err)
	}

	g.log.Info("artifact uploaded",
		zap.String("container", container),
		zap.String("blob", key),
	)
	return &blobstore.UploadResult{
		ID:         key,
		InternalID: internalID,
		URL:        g.url(container, key),
		ETag:       strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

func (g *Gateway) DeleteArtifact(ctx context.Context, container, blobName string) error {
	if err := blobstore.ValidateContainer(container); err != nil {
		return err
	}

	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	})
	if err != nil {
		if isMissingObject(err) || isMissingBucket(err) {
			return blobstore.ErrArtifactNotFound
		}
		return apperr.Upstream("blobstore_head_failed", err)
	}

	if _, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(blobName),
	}); err != nil {
		return apperr.Upstream("blobstore_delete_failed", err)
	}
	return nil
}

func (g *Gateway) ListContainers(ctx context.Context) ([]blobstore.Container, error) {
	out, err := g.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, apperr.Upstream("blobstore_list_containers_failed", err)
	}

	containers := make([]blobstore.Container, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		containers = append(containers, blobstore.Container{Name: aws.ToString(b.Name)})
	}
	return containers, nil
}

func (g *Gateway) ensureBucket(ctx context.Context, bucket string) error {
	_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if !isMissingBucket(err) {
		return apperr.Upstream("blobstore_head_bucket_failed", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if g.region != "" && g.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(g.region),
		}
	}

	if _, err := g.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return apperr.Upstream("blobstore_create_bucket_failed", err)
	}

	g.log.Info("container created", zap.String("container", bucket))
	return nil
}

func (g *Gateway) url(container, key string) string {
	if g.baseURL == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", container, g.region, key)
	}
	return g.baseURL + "/" + container + "/" + key
}

func isMissingBucket(err error) bool {
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noBucket) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

func isMissingObject(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

var _ blobstore.Gateway = (*Gateway)(nil)
