package email

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/resendlabs/resend-go"
)

type EmailService struct {
	client       *resend.Client
	from         string
	fromName     string
	templatesDir string
	logger       *log.Logger
}

func NewEmailService() *EmailService {
	logFile, err := os.OpenFile("logs/email.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Printf("Error opening email log file: %v", err)
		return &EmailService{
			client:       resend.NewClient(os.Getenv("RESEND_API_KEY")),
			from:         os.Getenv("EMAIL_FROM_ADDRESS"),
			fromName:     os.Getenv("EMAIL_FROM_NAME"),
			templatesDir: "pkg/email/templates",
			logger:       log.New(os.Stdout, "EMAIL: ", log.LstdFlags),
		}
	}

	multiWriter := io.MultiWriter(os.Stdout, logFile)

	return &EmailService{
		client:       resend.NewClient(os.Getenv("RESEND_API_KEY")),
		from:         os.Getenv("EMAIL_FROM_ADDRESS"),
		fromName:     os.Getenv("EMAIL_FROM_NAME"),
		templatesDir: "pkg/email/templates",
		logger:       log.New(multiWriter, "EMAIL: ", log.LstdFlags),
	}
}

func (s *EmailService) SendWelcomeEmail(email, fullName string) error {
	templateData := map[string]interface{}{
		"FullName": fullName,
		"Email":    email,
		"Year":     time.Now().Year(),
	}

	html, err := s.parseTemplate("welcome.html", templateData)
	if err != nil {
		s.logger.Printf("Error parsing welcome template for %s: %v", email, err)
		return err
	}

	return s.send(email, "Welcome to TailorCV!", html)
}

func (s *EmailService) SendVerificationEmail(email, fullName, token string) error {
	verificationLink := os.Getenv("FRONTEND_URL") + "/verify-email?token=" + token

	templateData := map[string]interface{}{
		"FullName":         fullName,
		"VerificationLink": verificationLink,
		"Email":            email,
		"Year":             time.Now().Year(),
	}

	html, err := s.parseTemplate("verify-email.html", templateData)
	if err != nil {
		s.logger.Printf("Error parsing verification template for %s: %v", email, err)
		return err
	}

	return s.send(email, "Verify Your Email - TailorCV", html)
}

func (s *EmailService) SendPasswordResetEmail(email string, resetToken string) error {
	resetLink := os.Getenv("FRONTEND_URL") + "/reset-password?token=" + resetToken

	templateData := map[string]interface{}{
		"ResetLink": resetLink,
		"Email":     email,
		"Year":      time.Now().Year(),
	}

	html, err := s.parseTemplate("reset-password.html", templateData)
	if err != nil {
		s.logger.Printf("Error parsing reset password template for %s: %v", email, err)
		return err
	}

	return s.send(email, "Reset Your Password - TailorCV", html)
}

// SendPurchaseConfirmation is fired after the reconciler credits a purchase.
// Failures are the caller's to ignore; receipts never block reconciliation.
func (s *EmailService) SendPurchaseConfirmation(email, fullName, planName string, credits int) error {
	templateData := map[string]interface{}{
		"FullName": fullName,
		"PlanName": planName,
		"Credits":  credits,
		"Year":     time.Now().Year(),
	}

	html, err := s.parseTemplate("purchase-confirmation.html", templateData)
	if err != nil {
		s.logger.Printf("Error parsing purchase confirmation template for %s: %v", email, err)
		return err
	}

	return s.send(email, fmt.Sprintf("Your %s purchase - TailorCV", planName), html)
}

func (s *EmailService) send(to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Printf("Failed to send %q to %s: %v", subject, to, err)
		return err
	}

	s.logger.Printf("Sent %q to %s (ID: %s)", subject, to, resp.Id)
	return nil
}

func (s *EmailService) parseTemplate(templateName string, data interface{}) (string, error) {
	templatePath := filepath.Join(s.templatesDir, templateName)

	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}

	return body.String(), nil
}
