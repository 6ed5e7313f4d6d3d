package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	"binbird-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	ctx := context.Background()

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// This is useful for cloud deployments where you can't upload files easily
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	ctx := context.Background()

	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}

	opt := option.WithCredentialsJSON(credentialsJSON)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendMulticast sends the same message to multiple tokens
func (s *FCMService) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}

// Pusher is the part of FCMService the run notifier needs
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// TokenSource lists the push tokens of everyone who should hear about runs
type TokenSource interface {
	AdminTokens(ctx context.Context) ([]string, error)
}

// RunNotifier pushes a message to admins when a run ends
type RunNotifier struct {
	pusher Pusher
	tokens TokenSource
	label  string
}

// NewRunNotifier creates a notifier. label identifies the device or staff
// member in the message body and may be empty.
func NewRunNotifier(pusher Pusher, tokens TokenSource, label string) *RunNotifier {
	return &RunNotifier{pusher: pusher, tokens: tokens, label: label}
}

// NotifyRunEnded sends the run summary to every admin token
func (n *RunNotifier) NotifyRunEnded(ctx context.Context, stats models.RunStats, reason models.RunEndReason) error {
	tokens, err := n.tokens.AdminTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admin tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	title := "Run finished"
	if reason == models.RunEndManual {
		title = "Run ended early"
	}
	body := fmt.Sprintf("%d of %d jobs completed (%d%%)", stats.CompletedJobs, stats.TotalJobs, stats.CompletionPercent)
	if stats.DurationLabel != nil {
		body += " in " + *stats.DurationLabel
	}
	if n.label != "" {
		body = n.label + ": " + body
	}

	data := map[string]string{
		"type":               "run_ended",
		"reason":             string(reason),
		"total_jobs":         strconv.Itoa(stats.TotalJobs),
		"completed_jobs":     strconv.Itoa(stats.CompletedJobs),
		"completion_percent": strconv.Itoa(stats.CompletionPercent),
	}
	return n.pusher.SendMulticast(ctx, tokens, title, body, data)
}
