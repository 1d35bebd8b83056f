package kafka

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

// EnsureTopic creates the topic through the cluster controller and waits up
// to topic.MaxWait for every partition to have a leader. An existing topic is
// not an error; a topic that is not ready in time is only logged.
func EnsureTopic(ctx context.Context, brokers []string, topic TopicSpec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers")
	}
	if topic.NumPartitions <= 0 {
		topic.NumPartitions = 1
	}
	if topic.ReplicationFactor <= 0 {
		topic.ReplicationFactor = 1
	}
	if topic.MaxWait <= 0 {
		topic.MaxWait = 5 * time.Second
	}
	log = log.With(zap.String("topic", topic.Name))

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.Warn("kafka dial failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Warn("kafka controller", zap.Error(err))
		return err
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		log.Warn("kafka dial controller", zap.Error(err))
		return err
	}
	defer cc.Close()

	err = cc.CreateTopics(kafka.TopicConfig{
		Topic:             topic.Name,
		NumPartitions:     topic.NumPartitions,
		ReplicationFactor: topic.ReplicationFactor,
	})
	switch {
	case errors.Is(err, kafka.TopicAlreadyExists):
		log.Debug("topic exists")
	case err != nil:
		log.Warn("create topic", zap.Error(err))
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, topic.MaxWait)
	defer cancel()
	backoff := 200 * time.Millisecond
	for {
		ps, err := conn.ReadPartitions(topic.Name)
		if err == nil && len(ps) > 0 && allHaveLeader(ps) {
			log.Info("topic ready", zap.Int("partitions", len(ps)))
			return nil
		}
		select {
		case <-waitCtx.Done():
			log.Warn("topic not confirmed ready in time")
			return nil
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

func allHaveLeader(parts []kafka.Partition) bool {
	for _, p := range parts {
		if p.Leader.ID == -1 {
			return false
		}
	}
	return true
}
