package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/lcvote/voteledger/internal/logging"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafkaNotifierProducesKeyedRecord(t *testing.T) {
	fp := &fakeProducer{}
	n := &KafkaNotifier{client: fp, topic: "ledger-events"}

	msg := Message{
		ID:         "evt-1",
		Kind:       KindVoteCast,
		AccountID:  "u1",
		Payload:    json.RawMessage(`{"remaining":1}`),
		OccurredAt: time.Unix(0, 0).UTC(),
	}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(fp.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(fp.records))
	}
	rec := fp.records[0]
	if rec.Topic != "ledger-events" || string(rec.Key) != "u1" {
		t.Fatalf("unexpected record routing: topic=%s key=%s", rec.Topic, rec.Key)
	}
	var decoded Message
	if err := json.Unmarshal(rec.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.Kind != KindVoteCast || decoded.ID != "evt-1" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestKafkaNotifierSurfacesProduceError(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	n := &KafkaNotifier{client: fp, topic: "ledger-events"}

	if err := n.Send(context.Background(), Message{Kind: KindAdminAction, AccountID: "u1"}); err == nil {
		t.Fatalf("expected produce error")
	}
}

type recordingNotifier struct {
	sent []Message
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	r.sent = append(r.sent, m)
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("nope")}
	ok := &recordingNotifier{}
	m := Multi{failing, nil, ok, NewLoggerNotifier(logging.Discard())}

	err := m.Send(context.Background(), Message{Kind: KindVoteCast})
	if err == nil {
		t.Fatalf("expected first error to surface")
	}
	if len(ok.sent) != 1 {
		t.Fatalf("later notifiers must still receive the message")
	}
}
