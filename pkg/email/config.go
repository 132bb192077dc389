package email

// Config holds outbound email settings. The Postmark tokens may stay empty
// in development, where the dev sender writes messages to disk instead; the
// sender and support addresses are always required because they define the
// From and Reply-To identity on every lifecycle email.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
