package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"messmate/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"gorm.io/gorm"
)

// PushService delivers web/app push through SNS platform endpoints and logs
// every attempt. Delivery is always best effort: callers never block on it
// and failures only show up in the notification log.
type PushService struct {
	db          *gorm.DB
	sns         *awssns.Client
	platformArn string
	publicKey   string
}

func NewPushService(db *gorm.DB) (*PushService, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ap-south-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PushService{
		db:          db,
		sns:         awssns.NewFromConfig(cfg),
		platformArn: os.Getenv("SNS_PLATFORM_ARN"),
		publicKey:   os.Getenv("PUSH_PUBLIC_KEY"),
	}, nil
}

// PublicKey is the application key clients use when registering for push.
func (p *PushService) PublicKey() string {
	return p.publicKey
}

// Subscribe registers a device token for a user and stores the resulting
// endpoint on the profile.
func (p *PushService) Subscribe(email, platform, token string) error {
	if token == "" {
		return invalid("missing subscription token")
	}
	if p.platformArn == "" {
		return errors.New("SNS_PLATFORM_ARN not set")
	}

	var user models.User
	if err := p.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user not found")
		}
		return err
	}

	out, err := p.sns.CreatePlatformEndpoint(context.TODO(), &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(p.platformArn),
		Token:                  aws.String(token),
	})
	if err != nil {
		return err
	}

	return p.db.Model(&user).Updates(map[string]any{
		"push_endpoint": aws.ToString(out.EndpointArn),
		"push_platform": strings.ToLower(platform),
	}).Error
}

// PushToUser publishes one notification. A permanently dead endpoint is
// pruned so the user drops out of future targeting.
func (p *PushService) PushToUser(email, title, body string, data map[string]string, typ, reason string) error {
	var user models.User
	if err := p.db.Where("email = ?", email).First(&user).Error; err != nil {
		return err
	}
	if user.PushEndpoint == "" {
		return errors.New("no subscription found")
	}

	gcm, _ := json.Marshal(map[string]any{
		"notification": map[string]string{
			"title": title,
			"body":  body,
		},
		"data": data,
	})
	// Per-platform payloads are JSON-encoded strings inside the envelope.
	raw, _ := json.Marshal(map[string]string{
		"default": body,
		"GCM":     string(gcm),
	})

	_, err := p.sns.Publish(context.TODO(), &awssns.PublishInput{
		MessageStructure: aws.String("json"),
		Message:          aws.String(string(raw)),
		TargetArn:        aws.String(user.PushEndpoint),
	})

	entry := models.NotificationLog{
		UserEmail: email,
		Type:      typ,
		Title:     title,
		Message:   body,
		SentAt:    time.Now(),
		Success:   err == nil,
		Reason:    reason,
	}
	if err != nil {
		entry.Error = err.Error()

		var disabled *snstypes.EndpointDisabledException
		var gone *snstypes.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &gone) {
			log.Printf("Removing dead push endpoint for %s", email)
			_ = p.db.Model(&user).Updates(map[string]any{"push_endpoint": "", "push_platform": ""}).Error
		}
	} else {
		now := time.Now()
		_ = p.db.Model(&user).Update("last_notification_sent", now).Error
	}
	_ = p.db.Create(&entry).Error

	return err
}
