// Package kafka publishes audit entries to a Kafka topic for downstream
// compliance and SIEM consumers. The publisher is an audit.Sink: best-effort,
// never on the primary path's critical section.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"veristay/pkg/platform/audit"
)

// Publisher produces audit entries to a single topic keyed by subject ID so
// per-subject ordering is preserved within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and returns a ready publisher.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

type payload struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subject_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	Action        string    `json:"action"`
	Reason        string    `json:"reason,omitempty"`
	DocumentID    string    `json:"document_id,omitempty"`
	Token         string    `json:"token,omitempty"`
	ProviderRef   string    `json:"provider_ref,omitempty"`
	SubjectIDHash string    `json:"subject_id_hash,omitempty"`
	RequestIP     string    `json:"request_ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func newPayload(entry audit.Entry) payload {
	body := payload{
		ID:            entry.ID,
		SubjectID:     entry.SubjectID.String(),
		Action:        string(entry.Action),
		Reason:        entry.Reason,
		Token:         entry.Token,
		ProviderRef:   entry.ProviderRef,
		SubjectIDHash: entry.SubjectIDHash,
		RequestIP:     entry.RequestIP,
		UserAgent:     entry.UserAgent,
		RequestID:     entry.RequestID,
		Timestamp:     entry.Timestamp,
	}
	if !entry.ActorID.IsNil() {
		body.ActorID = entry.ActorID.String()
	}
	if !entry.DocumentID.IsNil() {
		body.DocumentID = entry.DocumentID.String()
	}
	return body
}

// Publish produces the entry synchronously. Errors bubble up to the recorder,
// which logs and counts them without failing the primary operation.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) error {
	value, err := json.Marshal(newPayload(entry))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.SubjectID.String()),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit entry: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}
