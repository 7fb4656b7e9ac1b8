package email

// Config holds email delivery settings. Postmark tokens are optional so that
// development setups can fall back to DevSender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`                         // PostmarkServerToken enables Postmark delivery when set.
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`                        // PostmarkAccountToken is the Postmark account API token.
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@xamu.local"`  // SenderEmail is the From address.
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@xamu.local"` // SupportEmail is the Reply-To address.
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`       // DevDir receives rendered emails when Postmark is not configured.
	TrackOpens           bool   `env:"EMAIL_TRACK_OPENS" envDefault:"false"`          // TrackOpens asks Postmark to track opens.
}

// PostmarkEnabled reports whether both Postmark tokens are set.
func (c Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// NewSender picks Postmark when configured and DevSender otherwise.
func NewSender(cfg Config) (EmailSender, error) {
	if cfg.PostmarkEnabled() {
		s, err := NewPostmarkSender(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return NewDevSender(cfg.DevDir), nil
}
