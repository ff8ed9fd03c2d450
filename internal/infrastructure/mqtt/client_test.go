package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
// None of the tests in this file dial the broker; connection-dependent
// behaviour is covered by the integration build.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "roomcast-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "roomcast",
	}
}

// newTestClient builds an unconnected client or fails the test.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

// ─── Construction ────────────────────────────────────────────────────────────

func TestNew(t *testing.T) {
	client := newTestClient(t)

	if client.IsConnected() {
		t.Error("IsConnected() = true for unconnected client, want false")
	}

	if got := client.Topics().Commands("events"); got != "roomcast/events" {
		t.Errorf("Topics().Commands(\"events\") = %q, want %q", got, "roomcast/events")
	}
}

func TestNew_DeviceTokenMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.DeviceToken = config.DeviceTokenConfig{
		Enabled:        true,
		Audience:       "my-project",
		PrivateKeyFile: "/nonexistent/device.pem",
		TTL:            60,
	}

	_, err := New(cfg)
	if !errors.Is(err, ErrDeviceKey) {
		t.Errorf("New() error = %v, want ErrDeviceKey", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

// ─── Publish validation ──────────────────────────────────────────────────────

func TestPublishValidation(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("Light.2.50"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid QoS",
			topic:   "roomcast/events",
			payload: []byte("Light.2.50"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversize payload",
			topic:   "roomcast/events",
			payload: make([]byte, maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "roomcast/events",
			payload: []byte("Light.2.50"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(context.Background(), tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishStringNotConnected(t *testing.T) {
	client := newTestClient(t)

	err := client.PublishString(context.Background(), "roomcast/events", "Light.2.50", 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishString() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishRetainedNotConnected(t *testing.T) {
	client := newTestClient(t)

	err := client.PublishRetained(context.Background(), client.Topics().Status(), []byte(`{"status":"online"}`))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

// ─── Subscribe validation ────────────────────────────────────────────────────

func TestSubscribeValidation(t *testing.T) {
	client := newTestClient(t)
	handler := func(string, []byte) error { return nil }

	t.Run("empty topic", func(t *testing.T) {
		err := client.Subscribe("", 1, handler)
		if !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
		}
	})

	t.Run("invalid QoS", func(t *testing.T) {
		err := client.Subscribe("roomcast/events", 3, handler)
		if !errors.Is(err, ErrInvalidQoS) {
			t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
		}
	})

	t.Run("nil handler", func(t *testing.T) {
		err := client.Subscribe("roomcast/events", 1, nil)
		if !errors.Is(err, ErrSubscribeFailed) {
			t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		err := client.Subscribe("roomcast/events", 1, handler)
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
		}
	})
}

func TestUnsubscribeValidation(t *testing.T) {
	client := newTestClient(t)

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}

	if err := client.Unsubscribe("roomcast/events"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking_Empty(t *testing.T) {
	client := newTestClient(t)

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}

	if client.HasSubscription("roomcast/events") {
		t.Error("HasSubscription() should be false for unsubscribed topic")
	}
}

// ─── HealthCheck ─────────────────────────────────────────────────────────────

func TestHealthCheckCancelled(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := newTestClient(t)

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// ─── Topics ──────────────────────────────────────────────────────────────────

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "Commands",
			builder: func() string {
				return NewTopics("roomcast").Commands("events")
			},
			expected: "roomcast/events",
		},
		{
			name: "Commands with site prefix",
			builder: func() string {
				return NewTopics("devices/flat-7").Commands("events")
			},
			expected: "devices/flat-7/events",
		},
		{
			name: "Status",
			builder: func() string {
				return NewTopics("roomcast").Status()
			},
			expected: "roomcast/status",
		},
		{
			name: "empty prefix falls back to default",
			builder: func() string {
				return NewTopics("").Commands("events")
			},
			expected: "roomcast/events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

// ─── Status payloads ─────────────────────────────────────────────────────────

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
	}{
		{name: "online", payload: buildOnlinePayload("roomcast-test"), wantStatus: "online"},
		{name: "offline", payload: buildOfflinePayload("roomcast-test"), wantStatus: "offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded map[string]string
			if err := json.Unmarshal([]byte(tt.payload), &decoded); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}

			if decoded["status"] != tt.wantStatus {
				t.Errorf("status = %q, want %q", decoded["status"], tt.wantStatus)
			}

			if decoded["client_id"] != "roomcast-test" {
				t.Errorf("client_id = %q, want %q", decoded["client_id"], "roomcast-test")
			}

			if decoded["timestamp"] == "" {
				t.Error("timestamp missing from status payload")
			}
		})
	}
}
