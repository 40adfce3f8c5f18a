package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/canerconnect/terminflow/libs/kafkax"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type fakeSource struct {
	records   []Record
	committed bool
}

func (f *fakeSource) ProcessBatch(ctx context.Context, limit int, fn func(context.Context, []Record) error) (int, error) {
	batch := f.records
	if len(batch) > limit {
		batch = batch[:limit]
	}
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	f.committed = true
	return len(batch), nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestPublishOnceWritesTopicPerEventType(t *testing.T) {
	src := &fakeSource{records: []Record{
		{ID: 1, EventID: "e-1", AggregateID: "a-1", EventType: EventAppointmentBooked, Payload: []byte(`{}`)},
		{ID: 2, EventID: "e-2", AggregateID: "a-1", EventType: EventAppointmentCancelled, Payload: []byte(`{}`)},
	}}
	w := &fakeWriter{}
	p := NewPublisher(src, w, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 10})

	n, err := p.PublishOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("PublishOnce = %d, %v", n, err)
	}
	if !src.committed || len(w.msgs) != 2 {
		t.Fatalf("expected commit and 2 messages, got %v / %d", src.committed, len(w.msgs))
	}
	if w.msgs[1].Topic != EventAppointmentCancelled || string(w.msgs[1].Key) != "a-1" {
		t.Fatalf("unexpected message %+v", w.msgs[1])
	}
	if kafkax.HeaderValue(w.msgs[0].Headers, kafkax.HeaderEventID) != "e-1" {
		t.Fatal("missing event id header")
	}
}

func TestPublishOnceLeavesBatchOnWriteError(t *testing.T) {
	src := &fakeSource{records: []Record{{ID: 1, EventType: EventAppointmentBooked}}}
	p := NewPublisher(src, &fakeWriter{err: errors.New("broker down")}, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{})
	if _, err := p.PublishOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if src.committed {
		t.Fatal("batch must not be marked published on write failure")
	}
}

func TestAppointmentEventOmitsToken(t *testing.T) {
	date, _ := model.ParseDate("2030-03-04")
	evt, err := AppointmentEvent(EventAppointmentBooked, model.Appointment{
		ID: "a-1", CustomerID: "c-1", Date: date, Start: 600, End: 630,
		Status: model.StatusConfirmed, CancellationToken: "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if _, ok := payload["cancellation_token"]; ok {
		t.Fatal("token must not leave the service")
	}
	if payload["start_time"] != "10:00" || payload["date"] != "2030-03-04" {
		t.Fatalf("unexpected payload %v", payload)
	}
}
