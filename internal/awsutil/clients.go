package awsutil

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	configv2 "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// LoadConfig reads the default AWS config for region. When LOCALSTACK_ENDPOINT
// is set (e.g. http://localhost:4566) it uses static dummy creds, which LocalStack accepts.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*configv2.LoadOptions) error{
		configv2.WithRegion(region),
	}
	if localstackEndpoint() != "" {
		opts = append(opts, configv2.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}
	return configv2.LoadDefaultConfig(ctx, opts...)
}

func localstackEndpoint() string {
	return os.Getenv("LOCALSTACK_ENDPOINT")
}

func NewDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if ep := localstackEndpoint(); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	}), nil
}

func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep := localstackEndpoint(); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			// LocalStack serves buckets on the path, not as subdomains.
			o.UsePathStyle = true
		}
	}), nil
}

func NewSQSClient(ctx context.Context, region string) (*sqs.Client, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if ep := localstackEndpoint(); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	}), nil
}
