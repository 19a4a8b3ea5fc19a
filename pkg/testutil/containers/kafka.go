//go:build integration

package containers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaContainer is a single Redpanda broker for the credential event sink.
type KafkaContainer struct {
	Brokers string
}

func startKafka(ctx context.Context) (*KafkaContainer, error) {
	c, err := kafka.Run(ctx, "redpandadata/redpanda:latest", kafka.WithClusterID("attest-test"))
	if err != nil {
		return nil, err
	}
	brokers, err := c.Brokers(ctx)
	if err != nil {
		return nil, err
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka container reported no brokers")
	}
	return &KafkaContainer{Brokers: brokers[0]}, nil
}

func (k *KafkaContainer) client(opts ...kgo.Opt) (*kgo.Client, error) {
	return kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(k.Brokers)}, opts...)...)
}

// CreateTopic creates a single-partition topic. An existing topic is an
// error.
func (k *KafkaContainer) CreateTopic(ctx context.Context, topic string) error {
	cl, err := k.client()
	if err != nil {
		return err
	}
	defer cl.Close()

	resp, err := kadm.NewClient(cl).CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return err
	}
	return resp.Err
}

// ReadFirst consumes topic from the beginning and returns the first record
// keyed key. It returns nil, nil if none shows up within timeout.
func (k *KafkaContainer) ReadFirst(ctx context.Context, topic, key string, timeout time.Duration) (*kgo.Record, error) {
	cl, err := k.client(
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for ctx.Err() == nil {
		iter := cl.PollFetches(ctx).RecordIter()
		for !iter.Done() {
			if r := iter.Next(); string(r.Key) == key {
				return r, nil
			}
		}
	}
	return nil, nil
}
