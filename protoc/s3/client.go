// Package s3 implements the remote store on an S3 compatible bucket.
// Directories are zero byte marker objects ending with a slash and chunk
// folders live under the uploads/ prefix, assembled with a multipart copy.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/metrics/smithyotelmetrics"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var connectionIDNamespace = uuid.MustParse("8676c88d-b3f7-44b2-b645-11c28d6bb4c8")

// Client represents an S3 bucket account.
type Client struct {
	Endpoint     string `json:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	BucketName   string `json:"bucketName" mapstructure:"bucket" validate:"required"`
	Region       string `json:"region" mapstructure:"region" validate:"required"`
	AccessKey    string `json:"accessKey" mapstructure:"access_key" validate:"required"`
	SecretKey    string `json:"-" mapstructure:"secret_key" validate:"required"`
	UsePathStyle bool   `json:"usePathStyle" mapstructure:"use_path_style"`
	// Parts bounds the multipart upload of large files, zero fields use the
	// AWS limits
	Parts PartLimits `json:"parts" mapstructure:"parts"`
}

// NewClient creates a new S3 client.
func NewClient(
	endpoint, bucketName,
	region, accessKey, secretKey string,
) (c *Client) {
	c = &Client{
		Endpoint:     endpoint,
		BucketName:   bucketName,
		Region:       region,
		AccessKey:    accessKey,
		SecretKey:    secretKey,
		UsePathStyle: true,
	}
	return
}

func (c Client) GetRemoteStore(logger logr.Logger, spaceID string) protoc.RemoteStore {
	return NewStore(logger, c.GetS3API(), c.BucketName, spaceID, WithPartLimits(c.Parts))
}

func (c Client) GetSessionAPI(logr.Logger, string) protoc.SessionAPI {
	panic(errors.ErrUnsupported)
}

// GetCapabilities reports chunking: chunk folders are assembled server side
// with a multipart copy.
func (c Client) GetCapabilities() protoc.Capabilities {
	return protoc.Capabilities{Chunking: true}
}

func (c Client) GetS3API() protoc.S3API {
	s3Options := awss3.Options{
		Region:       c.Region,
		BaseEndpoint: aws.String(c.Endpoint),
		UsePathStyle: c.UsePathStyle,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     c.AccessKey,
				SecretAccessKey: c.SecretKey,
			}, nil
		}),
		MeterProvider: smithyotelmetrics.Adapt(otel.GetMeterProvider()),
	}
	return awss3.New(s3Options)
}

func (c Client) GetCredential() any {
	return c
}

func (c Client) GetConnectionID() string {
	return uuid.NewSHA1(
		connectionIDNamespace,
		[]byte(fmt.Sprintf(
			"%s:%s:%s:%s:%s",
			c.Endpoint, c.BucketName, c.Region, c.AccessKey, c.SecretKey),
		),
	).String()
}

func (c Client) GetURI() string {
	endpoint := c.Endpoint
	for _, scheme := range []string{"https", "http"} {
		endpoint = strings.TrimPrefix(endpoint, scheme+"://")
	}
	return fmt.Sprintf("%s/%s", endpoint, c.BucketName)
}
