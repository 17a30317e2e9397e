package mail

import (
	"context"
	"fmt"
	"strings"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"

	"gopkg.in/gomail.v2"
)

// Dispatcher hands an email job over for delivery. The SMTP sender delivers it
// directly, the kafka producer queues it for the mail worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, job models.EmailJob) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Sender struct {
	Dialer dialer
	From   string
	Logger *logger.Logger
}

func NewSender(cfg config.EmailConfig, log *logger.Logger) *Sender {
	if log == nil {
		log = logger.Discard()
	}
	return &Sender{
		Dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		From:   cfg.From,
		Logger: log,
	}
}

// BuildMessage renders job as an HTML message from the given address.
func BuildMessage(from string, job models.EmailJob) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", job.To...)
	if len(job.CC) > 0 {
		m.SetHeader("Cc", job.CC...)
	}
	if replyTo := strings.TrimSpace(job.ReplyTo); replyTo != "" {
		m.SetHeader("Reply-To", replyTo)
	}
	m.SetHeader("Subject", job.Subject)
	m.SetBody("text/html", job.Body)
	return m
}

// Send delivers job over SMTP.
func (s *Sender) Send(job models.EmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := s.Dialer.DialAndSend(BuildMessage(s.From, job)); err != nil {
		s.Logger.LogMail("FAILED", job.Subject, err.Error())
		return fmt.Errorf("failed to send %s email %s: %w", job.Kind, job.ID, err)
	}
	s.Logger.LogMail("SENT", job.Subject, fmt.Sprintf("to=%v cc=%v", job.To, job.CC))
	return nil
}

func (s *Sender) Dispatch(ctx context.Context, job models.EmailJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Send(job)
}

// Handle lets the sender serve as the kafka consumer's job handler.
func (s *Sender) Handle(ctx context.Context, job models.EmailJob) error {
	return s.Dispatch(ctx, job)
}
