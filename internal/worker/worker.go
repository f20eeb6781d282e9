// Package worker processes background jobs dequeued from Redis.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/gulfevents/backoffice/config"
	"github.com/gulfevents/backoffice/internal/emaillogs"
	"github.com/gulfevents/backoffice/pkg/queue"
)

const retryBackoff = 2 * time.Second

// Mailer delivers one email.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg config.EmailConfig
}

// NewSMTPMailer creates an SMTP mailer from config.
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message. Uses AUTH PLAIN when credentials are set.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		m.cfg.FromName, m.cfg.FromAddress, to, subject, body)
	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, m.cfg.FromAddress, []string{to}, []byte(msg))
}

// InviteProcessor delivers invitation credential emails and records every
// attempt in email_logs.
type InviteProcessor struct {
	queue     *queue.Queue
	emailLogs *emaillogs.Repository
	mailer    Mailer
	logger    *zap.Logger
}

// NewInviteProcessor creates the invitation email processor. mailer may be
// nil when SMTP is not configured; jobs are then logged and marked sent so
// local development works without a relay.
func NewInviteProcessor(q *queue.Queue, emailLogs *emaillogs.Repository, mailer Mailer, logger *zap.Logger) *InviteProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteProcessor{queue: q, emailLogs: emailLogs, mailer: mailer, logger: logger}
}

// Process executes one invitation email job.
func (p *InviteProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInviteEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InviteEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	subject := "You have been invited to the events back office"
	body := fmt.Sprintf(
		"Hello %s,\n\nAn account has been created for you (%s, %s region).\n\nLogin: %s\nTemporary password: %s\n\nPlease sign in and change your password.\n",
		payload.FullName, payload.Role, payload.Region, payload.Email, payload.TempPassword)
	if payload.InvitedByName != "" {
		body += fmt.Sprintf("\nInvited by %s.\n", payload.InvitedByName)
	}

	if p.mailer == nil {
		p.logger.Info("smtp not configured, skipping delivery",
			zap.String("email", payload.Email))
		p.record(ctx, payload, emaillogs.StatusSent, "")
		return nil
	}
	if err := p.mailer.Send(payload.Email, subject, body); err != nil {
		p.record(ctx, payload, emaillogs.StatusFailed, err.Error())
		return fmt.Errorf("send invite email: %w", err)
	}
	p.record(ctx, payload, emaillogs.StatusSent, "")
	p.logger.Info("invite email sent", zap.String("email", payload.Email))
	return nil
}

func (p *InviteProcessor) record(ctx context.Context, payload queue.InviteEmailPayload, status, errMsg string) {
	profileID := payload.ProfileID
	if err := p.emailLogs.Record(ctx, &profileID, payload.Email, string(queue.JobTypeInviteEmail), status, errMsg); err != nil {
		p.logger.Warn("record email log failed", zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *InviteProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("invite worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(retryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(retryBackoff)
		}
	}
}
