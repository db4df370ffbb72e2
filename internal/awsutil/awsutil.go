package awsutil

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"ms-discovery/internal/config"
)

// LoadConfig loads the AWS SDK config, using static credentials when both
// keys are configured and the default chain otherwise.
func LoadConfig(ctx context.Context, cfg config.Config) (aws.Config, error) {
	awsOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		log.Println("Using AWS credentials from environment variables")
		awsOptions = append(awsOptions, awsconfig.WithCredentialsProvider(
			aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AWSAccessKeyID,
					SecretAccessKey: cfg.AWSSecretAccessKey,
				}, nil
			}),
		))
	} else {
		log.Println("No AWS credentials provided in environment variables, falling back to default credentials")
	}

	return awsconfig.LoadDefaultConfig(ctx, awsOptions...)
}

// NewSQSClient creates an SQS client, pointed at AWS_LOCAL_ENDPOINT_URL when set.
func NewSQSClient(awsCfg aws.Config, cfg config.Config) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWSEndpoint != "" {
			log.Printf("Using LocalStack endpoint for SQS: %s", cfg.AWSEndpoint)
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
}

// NewSchedulerClient creates an EventBridge Scheduler client.
func NewSchedulerClient(awsCfg aws.Config, cfg config.Config) *scheduler.Client {
	return scheduler.NewFromConfig(awsCfg, func(o *scheduler.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
}
