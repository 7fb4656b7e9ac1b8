package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers through the Postmark API. Replies go to the
// support address.
type PostmarkSender struct {
	client   *postmark.Client
	from     string
	replyTo  string
	tracking bool
}

func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if !cfg.PostmarkEnabled() {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidConfig)
	}
	for name, addr := range map[string]string{"SENDER_EMAIL": cfg.SenderEmail, "SUPPORT_EMAIL": cfg.SupportEmail} {
		if !emailRegex.MatchString(addr) {
			return nil, fmt.Errorf("%w: %s %q is not an email address", ErrInvalidConfig, name, addr)
		}
	}
	return &PostmarkSender{
		client:   postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:     cfg.SenderEmail,
		replyTo:  cfg.SupportEmail,
		tracking: cfg.TrackOpens,
	}, nil
}

func (s *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		Metadata:   params.Metadata,
		TrackOpens: s.tracking,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
