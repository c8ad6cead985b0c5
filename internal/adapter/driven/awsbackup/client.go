// Package awsbackup implements the BackupClient port using the AWS SDK for Go v2.
package awsbackup

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/backup"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BackupClient = (*Client)(nil)

// API is the subset of *backup.Client the adapter calls.
type API interface {
	DescribeBackupVault(ctx context.Context, params *backup.DescribeBackupVaultInput, optFns ...func(*backup.Options)) (*backup.DescribeBackupVaultOutput, error)
	ListRecoveryPointsByBackupVault(ctx context.Context, params *backup.ListRecoveryPointsByBackupVaultInput, optFns ...func(*backup.Options)) (*backup.ListRecoveryPointsByBackupVaultOutput, error)
	DeleteRecoveryPoint(ctx context.Context, params *backup.DeleteRecoveryPointInput, optFns ...func(*backup.Options)) (*backup.DeleteRecoveryPointOutput, error)
}

// Options configures how the SDK client is built. Zero values defer to the
// SDK's default credential and region chain.
type Options struct {
	Region           string
	Profile          string
	Endpoint         string // Overrides the service endpoint, e.g. for LocalStack.
	RetryMaxAttempts int    // 0 keeps the SDK default.
	AccessKeyID      string // Static credentials; used only when both key parts are set.
	SecretAccessKey  string
	SessionToken     string

	// RequestsPerSecond throttles every Backup API call made by the client.
	// 0 disables client-side throttling.
	RequestsPerSecond float64
}

// Client implements the driven.BackupClient port over AWS Backup.
type Client struct {
	api     API
	limiter *rate.Limiter // nil when unthrottled.
}

// NewClient loads the shared AWS configuration and creates a Backup client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.RetryMaxAttempts > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(opts.RetryMaxAttempts))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	svc := backup.NewFromConfig(awsCfg, func(o *backup.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewClientWithAPI(svc, opts.RequestsPerSecond), nil
}

// NewClientWithAPI creates a Client around an existing API implementation,
// throttled to requestsPerSecond when it is positive.
func NewClientWithAPI(api API, requestsPerSecond float64) *Client {
	c := &Client{api: api}
	if requestsPerSecond > 0 {
		burst := max(1, int(requestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return c
}

// wait blocks until the limiter admits one more request or ctx ends.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// DescribeVault returns nil if the vault can be described. A
// ResourceNotFoundException is additionally marked with model.ErrVaultNotFound.
func (c *Client) DescribeVault(ctx context.Context, vault model.VaultName) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("describe backup vault %s: %w", vault, err)
	}
	_, err := c.api.DescribeBackupVault(ctx, &backup.DescribeBackupVaultInput{
		BackupVaultName: aws.String(string(vault)),
	})
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("describe backup vault %s: %w: %w", vault, model.ErrVaultNotFound, err)
	}
	return fmt.Errorf("describe backup vault %s: %w", vault, err)
}

// ListRecoveryPoints fetches one page of recovery points.
func (c *Client) ListRecoveryPoints(ctx context.Context, vault model.VaultName, nextToken string) (model.RecoveryPointPage, error) {
	input := &backup.ListRecoveryPointsByBackupVaultInput{
		BackupVaultName: aws.String(string(vault)),
	}
	if nextToken != "" {
		input.NextToken = aws.String(nextToken)
	}

	if err := c.wait(ctx); err != nil {
		return model.RecoveryPointPage{}, err
	}

	out, err := c.api.ListRecoveryPointsByBackupVault(ctx, input)
	if err != nil {
		return model.RecoveryPointPage{}, err
	}

	page := model.RecoveryPointPage{
		Items:     make([]model.RecoveryPoint, 0, len(out.RecoveryPoints)),
		NextToken: aws.ToString(out.NextToken),
	}
	for _, rp := range out.RecoveryPoints {
		arn := aws.ToString(rp.RecoveryPointArn)
		if arn == "" {
			continue
		}
		page.Items = append(page.Items, model.RecoveryPoint{Vault: vault, ARN: arn})
	}
	return page, nil
}

// DeleteRecoveryPoint deletes a single recovery point from the vault.
func (c *Client) DeleteRecoveryPoint(ctx context.Context, vault model.VaultName, arn string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err := c.api.DeleteRecoveryPoint(ctx, &backup.DeleteRecoveryPointInput{
		BackupVaultName:  aws.String(string(vault)),
		RecoveryPointArn: aws.String(arn),
	})
	return err
}

// isNotFound reports whether err carries the service's not-found error code.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ResourceNotFoundException"
	}
	return false
}
