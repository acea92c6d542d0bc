package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSink pushes events to a Firebase Cloud Messaging topic
type FCMSink struct {
	client *messaging.Client
	topic  string
}

// NewFCMSink initializes the Firebase app from a service-account file
func NewFCMSink(ctx context.Context, credentialsFile, topic string) (*FCMSink, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	return &FCMSink{client: client, topic: topic}, nil
}

func (s *FCMSink) Notify(ctx context.Context, e Event) error {
	data := map[string]string{"kind": e.Kind}
	for k, v := range e.Data {
		data[k] = v
	}

	message := &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: e.Title,
			Body:  e.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		return fmt.Errorf("send topic message: %w", err)
	}
	return nil
}
