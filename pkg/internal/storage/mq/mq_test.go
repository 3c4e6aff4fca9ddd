package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/storage/mq"
)

func newGoChannel(t *testing.T, opts ...mq.Option) *mq.Client {
	t.Helper()

	cfg := configs.Default().MQ
	cfg.Type = configs.MQTypeGoChannel

	client, err := mq.New(context.Background(), &cfg, opts...)
	if err != nil {
		t.Fatalf("new gochannel client: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestGoChannel_PublishSubscribe(t *testing.T) {
	client := newGoChannel(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "gv.test")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := message.NewMessage(watermill.NewUUID(), []byte("hello"))
	if err := client.Publish(ctx, "gv.test", want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.UUID != want.UUID || string(got.Payload) != "hello" {
			t.Fatalf("unexpected message %s %q", got.UUID, got.Payload)
		}

		got.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestGoChannel_WithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	cfg := configs.Default().MQ
	cfg.Type = configs.MQTypeGoChannel
	cfg.Common.EnableMetrics = true

	client, err := mq.New(context.Background(), &cfg, mq.WithMetrics(reg))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestNew_UnknownType(t *testing.T) {
	cfg := configs.Default().MQ
	cfg.Type = "kafka"

	if _, err := mq.New(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestDrivers(t *testing.T) {
	got := mq.Drivers()

	want := []string{"gochannel", "nats", "redis"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestClient_NilSafe(t *testing.T) {
	var c *mq.Client
	if err := c.Publish(context.Background(), "x"); err == nil {
		t.Fatal("expected error from nil client")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("close nil: %v", err)
	}
}
