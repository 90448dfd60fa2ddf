// Package s3 implements the storage adapter for S3-compatible object storage.
// It supports AWS S3, MinIO and other S3-compatible services.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ning0612/Stowage/internal/adapter"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/security"
)

// PresignExpiry is the lifetime of links returned by GetLink
const PresignExpiry = time.Hour

// objectAPI is the subset of the S3 client the adapter depends on
type objectAPI interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient

	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// presigner creates time-limited GET URLs
type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Adapter implements adapter.Adapter using S3-compatible storage
type Adapter struct {
	client   objectAPI
	uploader *manager.Uploader
	presign  presigner
	bucket   string
	region   string
	endpoint string
}

// New creates an S3 adapter for the connection
func New(ctx context.Context, conn domain.S3Connection) (*Adapter, error) {
	if conn.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", domain.ErrConfigInvalid)
	}
	if conn.AccessKeyID == "" || conn.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: access key and secret key are required", domain.ErrConfigInvalid)
	}
	if conn.Region == "" {
		conn.Region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(conn.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conn.AccessKeyID, conn.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3OptFns []func(*s3.Options)
	if conn.Endpoint != "" {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(conn.Endpoint)
		})
	}
	if conn.PathStyle {
		s3OptFns = append(s3OptFns, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3OptFns...)
	return newAdapter(client, s3.NewPresignClient(client), conn), nil
}

// Factory builds an S3 adapter from a connection, creating the bucket
// first when the connection asks for it.
func Factory(ctx context.Context, conn domain.Connection) (adapter.Adapter, error) {
	a, err := New(ctx, conn.S3)
	if err != nil {
		return nil, err
	}
	if conn.S3.EnsureBucket {
		if err := a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func newAdapter(client objectAPI, presign presigner, conn domain.S3Connection) *Adapter {
	return &Adapter{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  presign,
		bucket:   conn.Bucket,
		region:   conn.Region,
		endpoint: strings.TrimSuffix(conn.Endpoint, "/"),
	}
}

// Provider returns the backend identifier
func (a *Adapter) Provider() string {
	return ProviderName
}

// Bucket returns the bucket this adapter operates on
func (a *Adapter) Bucket() string {
	return a.bucket
}

// EnsureBucket creates the bucket with a private ACL.
// A bucket that already exists counts as success.
func (a *Adapter) EnsureBucket(ctx context.Context) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
		ACL:    types.BucketCannedACLPrivate,
	}
	if a.region != "" && a.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}

	_, err := a.client.CreateBucket(ctx, input)
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return mapError("checkBucket", err)
	}

	logger.Get().Info("Created bucket", "bucket", a.bucket)
	return nil
}

// UploadFile uploads data to key with a public-read or private ACL
func (a *Adapter) UploadFile(ctx context.Context, key string, data []byte, mimeType string, isPublic bool) (domain.UploadResult, error) {
	clean, err := a.sanitize(key)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	acl := types.ObjectCannedACLPrivate
	if isPublic {
		acl = types.ObjectCannedACLPublicRead
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(clean),
		Body:   bytes.NewReader(data),
		ACL:    acl,
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	out, err := a.uploader.Upload(ctx, input)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	result := domain.UploadResult{ID: clean, Key: clean}
	if isPublic {
		result.PublicURL = a.publicURL(clean, out.Location)
	}
	return result, nil
}

// UploadPublicFile uploads key with a public-read ACL
func (a *Adapter) UploadPublicFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, true)
}

// UploadPrivateFile uploads key with a private ACL
func (a *Adapter) UploadPrivateFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, false)
}

// Download returns the full object content
func (a *Adapter) Download(ctx context.Context, key string) ([]byte, error) {
	body, err := a.getObject(ctx, key)
	if err != nil {
		return nil, mapError("download", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, mapError("download", err)
	}
	return data, nil
}

// GetStream returns the object body for reading
func (a *Adapter) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := a.getObject(ctx, key)
	if err != nil {
		return nil, mapError("getStream", err)
	}
	return body, nil
}

// Exists checks if an object exists
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	if err := a.headObject(ctx, key); err != nil {
		mapped := mapError("exists", err)
		if errors.Is(mapped, domain.ErrNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// GetLink returns a presigned GET URL valid for one hour
func (a *Adapter) GetLink(ctx context.Context, key string) (string, error) {
	clean, err := a.sanitize(key)
	if err != nil {
		return "", mapError("getLink", err)
	}
	if err := a.headObject(ctx, clean); err != nil {
		return "", mapError("getLink", err)
	}

	req, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(clean),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = PresignExpiry
	})
	if err != nil {
		return "", mapError("getLink", err)
	}
	return req.URL, nil
}

// ListFiles returns every object under prefix with names relative to it
func (a *Adapter) ListFiles(ctx context.Context, prefix string) ([]domain.FileMetadata, error) {
	clean, err := security.SanitizeKey(prefix)
	if err != nil {
		return nil, mapError("listFiles", err)
	}
	if clean != "" {
		clean += "/"
	}

	var files []domain.FileMetadata
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(clean),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError("listFiles", err)
		}

		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			name := strings.TrimPrefix(objKey, clean)
			// Skip the zero-length prefix marker itself
			if name == "" {
				continue
			}
			files = append(files, domain.FileMetadata{
				Name: name,
				Size: aws.ToInt64(obj.Size),
				Key:  objKey,
			})
		}
	}
	return files, nil
}

// Delete removes the object at key
func (a *Adapter) Delete(ctx context.Context, key string) error {
	clean, err := a.sanitize(key)
	if err != nil {
		return mapError("delete", err)
	}

	_, err = a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		return mapError("delete", err)
	}
	return nil
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) getObject(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := a.sanitize(key)
	if err != nil {
		return nil, err
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(clean),
	})
	if err != nil {
		return nil, err
	}
	if out.Body == nil {
		return nil, fmt.Errorf("%w: object body is empty for key: %s", domain.ErrUnavailable, clean)
	}
	return out.Body, nil
}

func (a *Adapter) headObject(ctx context.Context, key string) error {
	clean, err := a.sanitize(key)
	if err != nil {
		return err
	}

	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(clean),
	})
	return err
}

// sanitize normalizes key and rejects an empty result
func (a *Adapter) sanitize(key string) (string, error) {
	clean, err := security.SanitizeKey(key)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return "", fmt.Errorf("%w: empty key", domain.ErrInvalidKey)
	}
	return clean, nil
}

// publicURL builds the permanent URL of a public object
func (a *Adapter) publicURL(key, location string) string {
	if a.endpoint == "" && location != "" {
		return location
	}
	endpoint := a.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", a.region)
	}
	return fmt.Sprintf("%s/%s/%s", endpoint, a.bucket, url.PathEscape(key))
}

// Compile-time interface check
var _ adapter.Adapter = (*Adapter)(nil)
