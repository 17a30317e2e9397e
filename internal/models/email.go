package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	EmailKindShooterIntroduction = "shooter_introduction"
	EmailKindNotificationError   = "notification_error"
	EmailKindInvoicingError      = "invoicing_error"
)

var ErrEmailNoRecipients = errors.New("email job has no recipients")

// EmailJob is the queued outbound email consumed by the mail worker.
type EmailJob struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	To        []string  `json:"to"`
	CC        []string  `json:"cc,omitempty"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEmailJob(kind, subject, body string, to []string) EmailJob {
	return EmailJob{
		ID:        uuid.New(),
		Kind:      kind,
		Subject:   subject,
		Body:      body,
		To:        to,
		CreatedAt: time.Now().UTC(),
	}
}

func (j EmailJob) Validate() error {
	if len(j.To) == 0 {
		return ErrEmailNoRecipients
	}
	return nil
}
