package events

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Backends accepted by NewPublisher.
const (
	BackendRedis = "redis"
	BackendNATS  = "nats"
	BackendKafka = "kafka"
	BackendNone  = "none"
)

// Options selects and configures the events backend.
type Options struct {
	Backend      string
	NATSURL      string
	KafkaBrokers []string
	KafkaTopic   string
}

// NewPublisher selects the publisher for opts.Backend. The redis backend
// without a client degrades to Noop.
func NewPublisher(opts Options, rdb *redis.Client) (Publisher, error) {
	switch opts.Backend {
	case BackendRedis, "":
		if rdb == nil {
			slog.Warn("redis unavailable, domain events disabled")
			return Noop{}, nil
		}
		return NewRedisPublisher(rdb), nil
	case BackendNATS:
		return NewNATSPublisher(opts.NATSURL)
	case BackendKafka:
		return NewKafkaPublisher(opts.KafkaBrokers, opts.KafkaTopic)
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", opts.Backend)
	}
}
