package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/redmonkez12/tours-api/internal/logging"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Service renders the account emails and hands them to a Sender.
type Service struct {
	sender   Sender
	resetTTL time.Duration
}

func NewService(sender Sender, resetTTL time.Duration) *Service {
	return &Service{sender: sender, resetTTL: resetTTL}
}

// SendPasswordResetEmail mails the reset link. The caller decides what to do
// when delivery fails.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, name, resetURL string) error {
	logger := logging.GetLoggerFromContext(ctx)

	minutes := int(s.resetTTL.Minutes())
	subject := fmt.Sprintf("Your password reset token (valid for %d min)", minutes)
	body, err := render(passwordResetTemplate, struct {
		FirstName string
		ResetLink string
		Minutes   int
	}{firstName(name), resetURL, minutes})
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sender.Send(ctx, toEmail, subject, body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

// SendWelcomeEmail greets a new user.
// This method is designed to be called in a goroutine
func (s *Service) SendWelcomeEmail(ctx context.Context, toEmail, name, url string) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := render(welcomeTemplate, struct {
		FirstName string
		URL       string
	}{firstName(name), url})
	if err != nil {
		logger.Error("failed to render welcome email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sender.Send(ctx, toEmail, "Welcome to the Natours Family!", body); err != nil {
		logger.Error("failed to send welcome email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("welcome email sent", "email", toEmail)
	return nil
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

const layout = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #55c57a;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f7f7f7;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .button {
            display: inline-block;
            background-color: #55c57a;
            color: white !important;
            padding: 12px 30px;
            text-decoration: none;
            border-radius: 5px;
            margin: 20px 0;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #777;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header"><h1>Natours</h1></div>
    <div class="content">{{template "content" .}}</div>
    <div class="footer"><p>Natours, exciting tours for adventurous people.</p></div>
</body>
</html>
`

var passwordResetTemplate = template.Must(template.Must(template.New("passwordReset").Parse(layout)).Parse(`
{{define "content"}}
        <p>Hi {{.FirstName}},</p>
        <p>Forgot your password? Submit a PATCH request with your new password and passwordConfirm to the link below.</p>

        <a href="{{.ResetLink}}" class="button" style="color: white !important;">Reset your password</a>

        <p style="word-break: break-all;">{{.ResetLink}}</p>
        <p>This link is valid for {{.Minutes}} minutes. If you didn't forget your password, please ignore this email!</p>
{{end}}`))

var welcomeTemplate = template.Must(template.Must(template.New("welcome").Parse(layout)).Parse(`
{{define "content"}}
        <p>Hi {{.FirstName}},</p>
        <p>Welcome to Natours, we're glad to have you 🎉🙏</p>
        <p>We're all a big family here, so make sure to upload your user photo so we get to know you a bit better!</p>

        <a href="{{.URL}}" class="button" style="color: white !important;">Upload user photo</a>

        <p>If you need any help with booking your next tour, please don't hesitate to contact me!</p>
{{end}}`))
