package email

// Config holds outbound email configuration. The Postmark tokens are
// optional so development environments can run on the DevSender; the sender
// and support addresses establish the from/reply-to identity of every
// outbound email.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
