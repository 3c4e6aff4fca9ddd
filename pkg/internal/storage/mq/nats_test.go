package mq

import (
	"testing"

	"github.com/yeisme/gradevault/pkg/configs"
)

func TestNatsConnect_URL(t *testing.T) {
	tests := []struct {
		name string
		cfg  configs.MQConfig
		want string
	}{
		{"bare host", configs.MQConfig{Common: configs.MQCommonConfig{URL: "localhost:4222"}}, "nats://localhost:4222"},
		{"with scheme", configs.MQConfig{Common: configs.MQCommonConfig{URL: "tls://mq:4443"}}, "tls://mq:4443"},
		{"cluster wins", configs.MQConfig{
			Common: configs.MQCommonConfig{URL: "localhost:4222"},
			NATS:   configs.MQNATSConfig{ClusterURLs: []string{"nats://a:4222", "nats://b:4222"}},
		}, "nats://a:4222,nats://b:4222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, opts := natsConnect(&tt.cfg)
			if url != tt.want {
				t.Errorf("url = %q, want %q", url, tt.want)
			}

			if len(opts) != 8 {
				t.Errorf("expected 8 options without credentials, got %d", len(opts))
			}
		})
	}
}

func TestNatsJetStream(t *testing.T) {
	if js := natsJetStream(configs.MQNATSConfig{}); !js.Disabled {
		t.Error("jetstream should be disabled")
	}

	js := natsJetStream(configs.MQNATSConfig{JetStreamEnabled: true, JetStreamDurablePrefix: "gv"})
	if js.Disabled || js.DurablePrefix != "gv" {
		t.Errorf("unexpected jetstream config %+v", js)
	}
}
