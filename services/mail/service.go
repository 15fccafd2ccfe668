package mail

import (
	"bytes"
	"context"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Service struct {
	config        *config.MailConfig
	appName       string
	client        *mail.Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

type TemplateData map[string]any

func NewService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	mailCfg := &cfg.Mail

	if mailCfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(mailCfg.Port),
	}

	switch mailCfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if mailCfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(mailCfg.Username))
	}
	if mailCfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(mailCfg.Password))
	}

	client, err := mail.NewClient(mailCfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	service := &Service{
		config:  mailCfg,
		appName: cfg.App.Name,
		client:  client,
		logger:  logger,
	}

	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	logger.Info("mail service initialized",
		zap.String("host", mailCfg.Host),
		zap.Int("port", mailCfg.Port),
		zap.String("from_address", mailCfg.FromAddress))

	return service, nil
}

func (s *Service) loadTemplates() error {
	if s.config.TemplatesDir == "" {
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	if matches, _ := filepath.Glob(htmlPattern); len(matches) > 0 {
		tmpl, err := htmlTemplate.ParseGlob(htmlPattern)
		if err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
		s.htmlTemplates = tmpl
	}

	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")
	if matches, _ := filepath.Glob(textPattern); len(matches) > 0 {
		tmpl, err := textTemplate.ParseGlob(textPattern)
		if err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
		s.textTemplates = tmpl
	}

	return nil
}

// SendTemplate renders the named template pair (name.html, name.txt) and
// sends the result. A missing HTML template falls back to the built-in body
// for the known template names.
func (s *Service) SendTemplate(templateName string, to []string, subject string, data TemplateData) error {
	if data == nil {
		data = TemplateData{}
	}
	data["AppName"] = s.appName

	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}
	if err := message.From(fromAddr); err != nil {
		return fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)

	htmlBody, err := s.renderHTML(templateName, data)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextHTML, htmlBody)

	if textBody, err := s.renderText(templateName, data); err == nil && textBody != "" {
		message.AddAlternativeString(mail.TypeTextPlain, textBody)
	}

	start := time.Now()
	if err := s.client.DialAndSend(message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.String("template", templateName),
			zap.Strings("to", to))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		zap.String("template", templateName),
		zap.Strings("to", to),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Service) renderHTML(templateName string, data TemplateData) (string, error) {
	if s.htmlTemplates != nil {
		if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return "", fmt.Errorf("failed to render template %s: %w", templateName, err)
			}
			return buf.String(), nil
		}
	}

	fallback, ok := fallbackBodies[templateName]
	if !ok {
		return "", fmt.Errorf("unknown mail template: %s", templateName)
	}

	var buf bytes.Buffer
	if err := fallback.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render fallback template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *Service) renderText(templateName string, data TemplateData) (string, error) {
	if s.textTemplates == nil {
		return "", nil
	}
	tmpl := s.textTemplates.Lookup(templateName + ".txt")
	if tmpl == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendEmailVerification implements verification.Notifier.
func (s *Service) SendEmailVerification(ctx context.Context, email, username, verificationURL string) error {
	return s.SendTemplate("email_verification", []string{email}, "Please verify your email", TemplateData{
		"Username":        username,
		"VerificationURL": verificationURL,
	})
}

// SendPasswordReset implements verification.Notifier.
func (s *Service) SendPasswordReset(ctx context.Context, email, username, resetURL string) error {
	return s.SendTemplate("password_reset", []string{email}, "Password reset request", TemplateData{
		"Username": username,
		"ResetURL": resetURL,
	})
}

var fallbackBodies = map[string]*htmlTemplate.Template{
	"email_verification": htmlTemplate.Must(htmlTemplate.New("email_verification").Parse(`<html><body>
		<p>Hi {{.Username}},</p>
		<p>Welcome to {{.AppName}}! We're excited to have you on board.</p>
		<p>To verify your email, please click the link below:</p>
		<p><a href="{{.VerificationURL}}">Verify your email</a></p>
		<p>Need help or have questions? Just reply to this email.</p>
	</body></html>`)),
	"password_reset": htmlTemplate.Must(htmlTemplate.New("password_reset").Parse(`<html><body>
		<p>Hi {{.Username}},</p>
		<p>We received a request to reset your {{.AppName}} account password.</p>
		<p><a href="{{.ResetURL}}">Reset your password</a></p>
		<p>If you didn't request this, no action is needed. Your account remains secure.</p>
	</body></html>`)),
}
