package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"chatline/internal/observability"
)

// Sender delivers a one-time verification code to an address.
type Sender interface {
	SendOTP(ctx context.Context, email, otp string) error
}

// SMTPSender sends OTP mail through a plain-auth SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	Host string
	User string
	Pass string
	From string
}

func (s *SMTPSender) SendOTP(_ context.Context, email, otp string) error {
	body := fmt.Sprintf(
		"To: %s\r\nSubject: OTP Verification for Registration\r\n\r\nYour OTP is %s. It will expire in 10 minutes.\r\n",
		email, otp,
	)

	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// LogSender logs the OTP instead of mailing it. Used when no SMTP relay is
// configured, e.g. in development.
type LogSender struct{}

func (LogSender) SendOTP(ctx context.Context, email, otp string) error {
	observability.GetLogger(ctx).Info("otp issued (mail disabled)",
		zap.String("email", email), zap.String("otp", otp))
	return nil
}
