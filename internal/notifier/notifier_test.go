package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"wqd/internal/models"
	"wqd/internal/providers"
	"wqd/internal/structures"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// local mock logger to avoid import cycle with testutil
type notifierTestLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *notifierTestLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *notifierTestLogger) Warnf(_ providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, fmt.Sprintf(format, args...))
}
func (m *notifierTestLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *notifierTestLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *notifierTestLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *notifierTestLogger) Close()                                                  {}

func (m *notifierTestLogger) warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warns...)
}

var detectedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAlert() Alert {
	r := models.Reading{ID: "r-1", SourceID: "tank", RecordedAt: detectedAt}.
		With(models.FieldPH, 9.1).
		With(models.FieldTemperature, 25)
	v := models.Verdict{IsSafe: false, Violations: []models.Field{models.FieldPH}}
	return NewAlert("tank", r, v, detectedAt)
}

type stubNotifier struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubNotifier) Notify(_ context.Context, _ Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func TestNewAlert_Message(t *testing.T) {
	a := testAlert()
	assert.Equal(t, "tank", a.SourceID)
	assert.Equal(t, "unsafe water at tank: ph=9.1", a.Message)
	assert.Equal(t, detectedAt, a.DetectedAt)
}

func TestLogNotifier_WarnsAndSucceeds(t *testing.T) {
	logger := &notifierTestLogger{}
	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), testAlert()))

	warns := logger.warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "source=tank")
	assert.Contains(t, warns[0], "unsafe water at tank")
}

func TestWebhookNotifier_PostsAlert(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, srv.Client()).Notify(context.Background(), testAlert())
	require.NoError(t, err)
	assert.Equal(t, "tank", got.SourceID)
	assert.Equal(t, []models.Field{models.FieldPH}, got.Verdict.Violations)
}

func TestWebhookNotifier_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookNotifier_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewWebhookNotifier(srv.URL, nil).Notify(ctx, testAlert())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeProducer struct {
	messages []*kafka.Message
	report   kafka.Event
	flushed  bool
	closed   bool
}

func (p *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	p.messages = append(p.messages, msg)
	if p.report != nil {
		deliveryChan <- p.report
	}
	return nil
}
func (p *fakeProducer) Flush(_ int) int { p.flushed = true; return 0 }
func (p *fakeProducer) Close()          { p.closed = true }

func TestKafkaNotifier_PublishesKeyedBySource(t *testing.T) {
	topic := "water-alerts"
	p := &fakeProducer{}
	p.report = &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}}
	k := &KafkaNotifier{producer: p, topic: topic}

	require.NoError(t, k.Notify(context.Background(), testAlert()))
	require.Len(t, p.messages, 1)
	assert.Equal(t, []byte("tank"), p.messages[0].Key)
	assert.Equal(t, topic, *p.messages[0].TopicPartition.Topic)

	var decoded Alert
	require.NoError(t, json.Unmarshal(p.messages[0].Value, &decoded))
	assert.Equal(t, "tank", decoded.SourceID)

	k.Close()
	assert.True(t, p.flushed)
	assert.True(t, p.closed)
}

func TestKafkaNotifier_DeliveryError(t *testing.T) {
	topic := "water-alerts"
	p := &fakeProducer{}
	p.report = &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Error: errors.New("broker down")}}
	k := &KafkaNotifier{producer: p, topic: topic}

	assert.EqualError(t, k.Notify(context.Background(), testAlert()), "broker down")
}

func TestKafkaNotifier_ContextDone(t *testing.T) {
	k := &KafkaNotifier{producer: &fakeProducer{}, topic: "water-alerts"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, k.Notify(ctx, testAlert()), context.DeadlineExceeded)
}

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(&notifierTestLogger{})
	assert.ErrorIs(t, h.Notify(context.Background(), testAlert()), ErrNoSubscribers)
}

func TestHub_BroadcastsToWebsocketClient(t *testing.T) {
	logger := &notifierTestLogger{}
	h := NewHub(logger)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(h, conn, logger).Serve()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Notify(context.Background(), testAlert()))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope struct {
		Type    string `json:"type"`
		Payload Alert  `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &envelope))
	assert.Equal(t, "alert", envelope.Type)
	assert.Equal(t, "tank", envelope.Payload.SourceID)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_FullBufferDropsClient(t *testing.T) {
	h := NewHub(&notifierTestLogger{})
	c := &Client{hub: h, send: make(chan []byte, 1), logger: &notifierTestLogger{}}
	h.Register(c)

	require.NoError(t, h.Notify(context.Background(), testAlert()))
	assert.ErrorIs(t, h.Notify(context.Background(), testAlert()), ErrNoSubscribers)
	assert.Equal(t, 0, h.Len())

	h.Unregister(c) // already removed
}

func TestFanOut_SucceedsWhenAnyChannelDelivers(t *testing.T) {
	logger := &notifierTestLogger{}
	ok := &stubNotifier{}
	bad := &stubNotifier{err: errors.New("boom")}

	f := NewFanOut(logger)
	f.Add("webhook", bad)
	f.Add("log", ok)

	require.NoError(t, f.Notify(context.Background(), testAlert()))
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)
	require.Len(t, logger.warnings(), 1)
	assert.Contains(t, logger.warnings()[0], "webhook")
}

func TestFanOut_FailsWhenAllFail(t *testing.T) {
	f := NewFanOut(&notifierTestLogger{})
	f.Add("webhook", &stubNotifier{err: errors.New("refused")})
	f.Add("hub", &stubNotifier{err: ErrNoSubscribers})

	err := f.Notify(context.Background(), testAlert())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSubscribers)
	assert.Contains(t, err.Error(), "webhook: refused")
}

func TestFanOut_Empty(t *testing.T) {
	assert.Error(t, NewFanOut(&notifierTestLogger{}).Notify(context.Background(), testAlert()))
}

func TestNewNotifierProvider_Channels(t *testing.T) {
	conf := &structures.Config{Notifier: structures.NotifierConfig{
		Channels: []string{"log", "webhook", "hub"},
		Timeout:  time.Second,
		Webhook:  structures.WebhookConfig{URL: "http://127.0.0.1:1/hook"},
	}}
	f, err := NewNotifierProvider(conf, &notifierTestLogger{}, NewHub(&notifierTestLogger{}))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"log", "webhook", "hub"}, f.Channels())
}

func TestNewNotifierProvider_DefaultsToLog(t *testing.T) {
	f, err := NewNotifierProvider(&structures.Config{}, &notifierTestLogger{}, NewHub(&notifierTestLogger{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, f.Channels())
}

func TestNewNotifierProvider_UnknownChannel(t *testing.T) {
	conf := &structures.Config{Notifier: structures.NotifierConfig{Channels: []string{"sms"}}}
	_, err := NewNotifierProvider(conf, &notifierTestLogger{}, NewHub(&notifierTestLogger{}))
	assert.Error(t, err)
}
