package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/gradevault/pkg/configs"
)

const (
	natsDrainTimeout   = 30 * time.Second
	natsFlusherTimeout = 10 * time.Second
)

func init() {
	Register(configs.MQTypeNATS, natsFactory)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// natsConnect 返回连接串与连接选项.
// 配置了 cluster_urls 时忽略 common.url；认证优先级 JWT > NKey > 用户名密码.
func natsConnect(cfg *configs.MQConfig) (string, []nc.Option) {
	c, n := cfg.Common, cfg.NATS

	url := strings.Join(n.ClusterURLs, ",")
	if url == "" {
		url = c.URL
		if !strings.Contains(url, "://") {
			url = "nats://" + url
		}
	}

	opts := []nc.Option{
		nc.Name(c.ClientID),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(c.MaxReconnects),
		nc.ReconnectWait(seconds(c.ReconnectWait)),
		nc.ReconnectBufSize(c.BufferSize),
		nc.PingInterval(seconds(c.PingInterval)),
		nc.DrainTimeout(natsDrainTimeout),
		nc.FlusherTimeout(natsFlusherTimeout),
	}

	switch {
	case n.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(n.JWT, n.NKey))
	case n.NKey != "":
		opts = append(opts, nc.Nkey(n.NKey, nil))
	case c.User != "":
		opts = append(opts, nc.UserInfo(c.User, c.Password))
	}

	return url, opts
}

func natsJetStream(n configs.MQNATSConfig) nats.JetStreamConfig {
	if !n.JetStreamEnabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	return nats.JetStreamConfig{
		AutoProvision: n.JetStreamAutoProvision,
		TrackMsgId:    n.JetStreamTrackMsgID,
		AckAsync:      n.JetStreamAckAsync,
		DurablePrefix: n.JetStreamDurablePrefix,
	}
}

func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	url, opts := natsConnect(cfg)
	js := natsJetStream(cfg.NATS)
	codec := &nats.JSONMarshaler{}

	logger.Debug("nats driver", watermill.LogFields{
		"url":        url,
		"jetstream":  !js.Disabled,
		"stream":     cfg.NATS.StreamName,
		"durable":    js.DurablePrefix,
		"subscriber": cfg.NATS.SubscribersCount,
	})

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   codec,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("nats publisher: %w", err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:              url,
		NatsOptions:      opts,
		JetStream:        js,
		Unmarshaler:      codec,
		SubscribersCount: cfg.NATS.SubscribersCount,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("nats subscriber: %w", err)
	}

	return pub, sub, nil
}
