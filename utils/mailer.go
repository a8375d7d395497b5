package utils

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Mailer sends transactional mail through SES. A Mailer with a nil client
// (no AWS config available) silently drops mail so local runs keep working.
type Mailer struct {
	client *ses.Client
}

func NewMailer() *Mailer {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Printf("AWS config load failed, mail disabled: %v", err)
		return &Mailer{}
	}
	return &Mailer{client: ses.NewFromConfig(cfg)}
}

func (m *Mailer) send(to, subject, body string) error {
	if m.client == nil {
		return fmt.Errorf("mailer not configured")
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(os.Getenv("SES_EMAIL")),
	}

	_, err := m.client.SendEmail(context.TODO(), input)
	if err != nil {
		log.Printf("SES send error: %v", err)
		return fmt.Errorf("email send failed: %v", err)
	}
	return nil
}

func (m *Mailer) SendOrderConfirmation(to, tokenNumber string, total float64) error {
	subject := "MessMate order confirmed"
	body := fmt.Sprintf("Your order has been placed.\n\nToken #%s\nTotal: Rs %.2f\n\nComplete the UPI payment from your dashboard to activate the token.", tokenNumber, total)
	return m.send(to, subject, body)
}
