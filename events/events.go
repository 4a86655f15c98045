// Package events writes lifecycle audit events to Kafka. Recording is
// best-effort: a failed send is logged and swallowed so it never blocks
// the operation that produced it.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/Shopify/sarama"
)

// Recorder is what the coordinator depends on; tests use Nop.
type Recorder interface {
	Record(event string, fields map[string]interface{})
}

type KafkaRecorder struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaRecorder(brokers []string, topic string) (*KafkaRecorder, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaRecorder{producer: producer, topic: topic}, nil
}

func (k *KafkaRecorder) Record(event string, fields map[string]interface{}) {
	payload := make(map[string]interface{}, len(fields)+2)
	for key, v := range fields {
		payload[key] = v
	}
	payload["event"] = event
	payload["timestamp"] = time.Now().Unix()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("events: marshal %s: %v", event, err)
		return
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		log.Printf("events: send %s: %v", event, err)
	}
}

func (k *KafkaRecorder) Close() error {
	return k.producer.Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(string, map[string]interface{}) {}
