// Package campaigndispatch wraps the AWS SES v2 client used to dispatch
// campaign email (§4.I). A thin wrapper in the same spirit as
// pkg/slack.Client: one outbound channel, one SDK, no abstraction beyond
// what the Campaign Engine needs.
package campaigndispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Client sends transactional campaign email through SES v2.
type Client struct {
	ses  *sesv2.Client
	from string
}

// New creates a Client from the ambient AWS configuration (environment,
// shared config file, or instance role) and the configured from address.
func New(ctx context.Context, fromAddress string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{ses: sesv2.NewFromConfig(cfg), from: fromAddress}, nil
}

// Send dispatches one HTML email with an unsubscribe header, per-recipient.
func (c *Client) Send(ctx context.Context, to, subject, html, unsubscribeURL string) error {
	_, err := c.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
				},
				Headers: []types.MessageHeader{
					{Name: aws.String("List-Unsubscribe"), Value: aws.String("<" + unsubscribeURL + ">")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses SendEmail failed: %w", err)
	}
	return nil
}
