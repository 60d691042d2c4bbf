package sendgrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a single transactional email.
type Message struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainText string
	HTML      string
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client sends transactional email through the SendGrid v3 API.
type Client struct {
	api  sendClient
	from *mail.Email
	logg *logger.Logger
}

// NewClient validates configuration and builds a SendGrid client.
func NewClient(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if !strings.HasPrefix(apiKey, "SG.") {
		return nil, fmt.Errorf("sendgrid api key must start with SG.")
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, fmt.Errorf("sendgrid from email is required")
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "from", from), "sendgrid client initialized")
	}

	return &Client{
		api:  sg.NewSendClient(apiKey),
		from: mail.NewEmail(cfg.FromName, from),
		logg: logg,
	}, nil
}

// Send delivers one message. Non-2xx responses are returned as errors.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil || c.api == nil {
		return fmt.Errorf("sendgrid client not configured")
	}
	if strings.TrimSpace(msg.ToEmail) == "" {
		return fmt.Errorf("recipient email is required")
	}

	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(c.from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := c.api.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d: %s", resp.StatusCode, truncate(resp.Body, 256))
	}
	return nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
