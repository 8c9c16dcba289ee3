package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/models"
)

type publisherStub struct {
	mu       sync.Mutex
	messages map[string][][]byte
	received chan struct{}
}

func newPublisherStub() *publisherStub {
	return &publisherStub{messages: make(map[string][][]byte), received: make(chan struct{}, 10)}
}

func (p *publisherStub) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	p.messages[channel] = append(p.messages[channel], payload)
	p.mu.Unlock()
	p.received <- struct{}{}
	return nil
}

func TestNotificationServicePublishesToUserChannel(t *testing.T) {
	pub := newPublisherStub()
	svc := NewNotificationService(pub, NotificationConfig{Enabled: true, Workers: 1, Retries: 1, ChannelPrefix: "test"}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notification{UserID: "u1", Event: NotificationApproved, Course: models.NewCourse("Math", "Algebra", "Fractions")})

	select {
	case <-pub.received:
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.messages["test:u1"], 1)
	var decoded Notification
	require.NoError(t, json.Unmarshal(pub.messages["test:u1"][0], &decoded))
	assert.Equal(t, NotificationApproved, decoded.Event)
	assert.Equal(t, "Fractions", decoded.Course.Name)
	assert.False(t, decoded.CreatedAt.IsZero())
}

func TestNotificationServiceDisabledSkipsDelivery(t *testing.T) {
	pub := newPublisherStub()
	svc := NewNotificationService(pub, NotificationConfig{Enabled: false}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), Notification{UserID: "u1", Event: NotificationSubmitted})

	select {
	case <-pub.received:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, "skillpath:notifications:u1", svc.Channel("u1"))
}
