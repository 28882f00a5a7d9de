package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"epicourierAPI/internal/types/notification"
)

type FCMService struct {
	client *messaging.Client
}

// NewFCMService initializes FCMService. It first attempts to use
// credentials from the FCM_SERVICE_ACCOUNT_JSON environment variable (Base64 encoded).
// If that's not found, it falls back to a local service account key file.
func NewFCMService(localFilePath string) (*FCMService, error) {
	var opt option.ClientOption

	encodedCreds := os.Getenv("FCM_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("FCM Service: Initializing from FCM_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("FCM Service: Initializing from local file: %s.", localFilePath)
	}

	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush delivers msg to each device individually. Tokens that FCM reports
// as unregistered are returned in Stale so the caller can forget them.
// iOS devices are not registered with FCM and are skipped.
func (s *FCMService) SendPush(ctx context.Context, tokens []notification.DeviceToken, msg notification.Message) (*notification.PushResult, error) {
	result := &notification.PushResult{}

	for _, t := range tokens {
		message := buildMessage(t, msg)
		if message == nil {
			continue
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			result.Failed++
			if messaging.IsRegistrationTokenNotRegistered(err) {
				result.Stale = append(result.Stale, t.Token)
				continue
			}
			log.Printf("FCM: Failed to send to token %d: %v", t.ID, err)
			continue
		}
		result.Sent++
	}

	log.Printf("FCM: Sent %d messages, %d failed", result.Sent, result.Failed)

	if result.Sent == 0 && result.Failed > 0 {
		return result, fmt.Errorf("all push notifications failed")
	}
	return result, nil
}

func buildMessage(t notification.DeviceToken, msg notification.Message) *messaging.Message {
	message := &messaging.Message{
		Token: t.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}

	switch t.Platform {
	case notification.PlatformAndroid, "":
		message.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Tag:   msg.Tag,
			},
		}
	case notification.PlatformWeb:
		message.Webpush = &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  msg.Body,
				Icon:  "/icons/icon-192x192.png",
				Badge: "/icons/badge-96x96.png",
				Tag:   msg.Tag,
			},
		}
		// FCM only accepts absolute https links
		if strings.HasPrefix(msg.Link, "https://") {
			message.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: msg.Link}
		}
	default:
		return nil
	}

	return message
}
