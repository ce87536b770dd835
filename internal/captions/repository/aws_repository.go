package repository

import (
	"context"
	"io"
	"time"

	awsSdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"lingocap/internal/captions"
)

type awsRepository struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

// NewAwsRepository creates the optional S3 mirror for assembled caption
// tracks.
func NewAwsRepository(client *s3.Client, presignClient *s3.PresignClient, bucket string) captions.AWSRepository {
	return &awsRepository{client: client, presignClient: presignClient, bucket: bucket}
}

func (r *awsRepository) UploadTrack(ctx context.Context, key string, body io.Reader) error {
	contentType := "text/vtt"
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awsSdk.String(r.bucket),
		Key:         awsSdk.String(key),
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return errors.Wrap(err, "awsRepository.UploadTrack")
	}
	return nil
}

func (r *awsRepository) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: awsSdk.String(r.bucket),
		Key:    awsSdk.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.GetPresignedURL")
	}
	return req.URL, nil
}
