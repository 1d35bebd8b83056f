package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Sitewatch/internal/domain/events"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestSiteEvents_PublishStatusChanged(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	w := &fakeWriter{}
	pub := NewSiteEventsKafka(NewProducerWithWriter(w, "sitewatch.site.status"), nil)

	ev := events.StatusChanged{SiteID: 5, UserID: 9, URL: "https://a.example", Old: "online", New: "offline", At: time.Now()}
	require.NoError(t, pub.PublishStatusChanged(ctx, ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, "5", string(msg.Key))
	require.NotEmpty(t, carrierFor(&msg.Headers).Get("traceparent"))

	var got *structpb.Struct
	h := ProtoHandler(func() *structpb.Struct { return &structpb.Struct{} },
		func(_ context.Context, _ []byte, m *structpb.Struct) error {
			got = m
			return nil
		})
	require.NoError(t, h(context.Background(), msg.Key, msg.Value))

	decoded, err := events.StatusChangedFromProto(got)
	require.NoError(t, err)
	require.Equal(t, "offline", decoded.New)
	require.Equal(t, int64(9), decoded.UserID)
}

func TestSiteEvents_MissingStream(t *testing.T) {
	pub := NewSiteEventsKafka(nil, nil)
	require.Error(t, pub.PublishCheckRequested(context.Background(), events.CheckRequest{UserID: 1, SiteID: 2}))
}

func TestProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewSiteEventsKafka(nil, NewProducerWithWriter(w, "sitewatch.check.request"))
	err := pub.PublishCheckRequested(context.Background(), events.CheckRequest{UserID: 1, SiteID: 2})
	require.EqualError(t, err, "broker down")
}
