//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/platform/kafka/producer"
	"attest/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *ProducerIntegrationSuite) TestProduceDeliversMessage() {
	ctx := context.Background()
	topic := "attest-producer-test"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("cred-1"),
		Value:   []byte(`{"type":"credential.issued"}`),
		Headers: map[string]string{"event_type": "credential.issued"},
	})
	s.Require().NoError(err)

	rec, err := s.kafka.ReadFirst(ctx, topic, "cred-1", 15*time.Second)
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.JSONEq(`{"type":"credential.issued"}`, string(rec.Value))
	s.Require().Len(rec.Headers, 1)
	s.Equal("event_type", rec.Headers[0].Key)
	s.Equal("credential.issued", string(rec.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestProduceAfterCloseFails() {
	prod, err := producer.New(producer.Config{Brokers: s.kafka.Brokers}, nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	err = prod.Produce(context.Background(), &producer.Message{Topic: "x"})
	s.ErrorIs(err, producer.ErrClosed)
	s.ErrorIs(prod.Health(context.Background()), producer.ErrClosed)
	s.NoError(prod.Close())
}

func (s *ProducerIntegrationSuite) TestNewRequiresBrokers() {
	_, err := producer.New(producer.Config{}, nil)
	s.Error(err)
}
