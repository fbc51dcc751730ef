package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/platform/sendgrid"
)

type EmailService interface {
	SendVerificationEmail(ctx context.Context, to, token, name string) error
	SendPasswordResetEmail(ctx context.Context, to, token, name string) error
}

type emailService struct {
	log     *logger.Logger
	client  sendgrid.Client
	baseURL string
}

func NewEmailService(log *logger.Logger, client sendgrid.Client, appBaseURL string) EmailService {
	serviceLog := log.With("service", "EmailService")
	return &emailService{
		log:     serviceLog,
		client:  client,
		baseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

func (es *emailService) SendVerificationEmail(ctx context.Context, to, token, name string) error {
	if es.client == nil {
		es.log.Warn("SendGrid not configured, skipping verification email", "to", to)
		return nil
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", es.baseURL, token)
	req := sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: to, Name: name}},
		Subject: "Verify your email",
		Text:    fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening this link:\n%s\n\nThe link expires in 24 hours.", name, link),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Confirm your email address by clicking the button below.</p><p><a href="%s">Verify email</a></p><p>The link expires in 24 hours.</p>`,
			name, link),
	}
	if _, err := es.client.Send(ctx, req); err != nil {
		return fmt.Errorf("Failed to send verification email: %w", err)
	}
	return nil
}

func (es *emailService) SendPasswordResetEmail(ctx context.Context, to, token, name string) error {
	if es.client == nil {
		es.log.Warn("SendGrid not configured, skipping password reset email", "to", to)
		return nil
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", es.baseURL, token)
	req := sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: to, Name: name}},
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hi %s,\n\nReset your password by opening this link:\n%s\n\nIf you did not request this, you can ignore this email.", name, link),
		HTML: fmt.Sprintf(`<p>Hi %s,</p><p>Reset your password by clicking the button below.</p><p><a href="%s">Reset password</a></p><p>If you did not request this, you can ignore this email.</p>`,
			name, link),
	}
	if _, err := es.client.Send(ctx, req); err != nil {
		return fmt.Errorf("Failed to send password reset email: %w", err)
	}
	return nil
}
