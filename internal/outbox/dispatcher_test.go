package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformevents "example.com/fitness/internal/platform/events"
)

type stubProducer struct {
	mu     sync.Mutex
	fail   map[string]error
	writes map[string][]kafka.Message
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[topic]; err != nil {
		return err
	}
	if s.writes == nil {
		s.writes = make(map[string][]kafka.Message)
	}
	s.writes[topic] = append(s.writes[topic], msgs...)
	return nil
}

type stubRegistry struct {
	ids map[string]int
	err error
}

func (s stubRegistry) EnsureSchema(_ context.Context, subject, schema string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if schema == "" {
		return 0, errors.New("empty schema")
	}
	return s.ids[subject], nil
}

func activityMessage(id int64, userID string) Message {
	return Message{
		EventID:       id,
		UserID:        userID,
		EventType:     platformevents.TypeActivityLogged,
		Topic:         "activity_events",
		SchemaSubject: "activity_events-value",
		PartitionKey:  userID,
		Payload:       json.RawMessage(`{"activity_id":"a"}`),
	}
}

func goalMessage(id int64, userID string) Message {
	return Message{
		EventID:       id,
		UserID:        userID,
		EventType:     platformevents.TypeGoalCompleted,
		Topic:         "goal_events",
		SchemaSubject: "goal_events-value",
		PartitionKey:  userID,
		Payload:       json.RawMessage(`{"goal_id":"g"}`),
	}
}

func TestFrame(t *testing.T) {
	out := frame(42, []byte(`{"a":1}`))

	require.Len(t, out, 5+7)
	assert.Equal(t, magicByte, out[0])
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(out[1:5]))
	assert.Equal(t, `{"a":1}`, string(out[5:]))
}

func TestPublishGroupsByTopicWithHeaders(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	producer := &stubProducer{}
	d := NewDispatcher(nil, producer, stubRegistry{ids: map[string]int{"activity_events-value": 7, "goal_events-value": 9}}, time.Second, 10)
	d.now = func() time.Time { return ts }

	published, failed := d.publish(context.Background(), []Message{
		activityMessage(1, "u1"),
		activityMessage(2, "u2"),
		goalMessage(3, "u1"),
	})
	require.Empty(t, failed)
	require.Len(t, published, 3)
	require.Len(t, producer.writes["activity_events"], 2)
	require.Len(t, producer.writes["goal_events"], 1)

	record := producer.writes["goal_events"][0]
	assert.Equal(t, "u1", string(record.Key))
	assert.Equal(t, ts, record.Time)
	assert.Equal(t, uint32(9), binary.BigEndian.Uint32(record.Value[1:5]))

	got := map[string]string{}
	for _, h := range record.Headers {
		got[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"event_type":     platformevents.TypeGoalCompleted,
		"user_id":        "u1",
		"schema_subject": "goal_events-value",
	}, got)
}

func TestPublishIsolatesFailingTopic(t *testing.T) {
	producer := &stubProducer{fail: map[string]error{"goal_events": errors.New("leader not available")}}
	d := NewDispatcher(nil, producer, stubRegistry{ids: map[string]int{}}, time.Second, 10)

	published, failed := d.publish(context.Background(), []Message{
		activityMessage(1, "u1"),
		goalMessage(2, "u1"),
	})

	require.Len(t, published, 1)
	assert.EqualValues(t, 1, published[0].EventID)
	require.Len(t, failed, 1)
	assert.EqualValues(t, 2, failed[0].msg.EventID)
	assert.Contains(t, failed[0].reason, "leader not available")
}

func TestPublishFailsUnknownEventsAndRegistryErrors(t *testing.T) {
	unknown := activityMessage(1, "u1")
	unknown.EventType = "unknown.event"

	d := NewDispatcher(nil, &stubProducer{}, stubRegistry{}, time.Second, 10)
	published, failed := d.publish(context.Background(), []Message{unknown})
	assert.Empty(t, published)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].reason, "no schema")

	d = NewDispatcher(nil, &stubProducer{}, stubRegistry{err: errors.New("registry down")}, time.Second, 10)
	published, failed = d.publish(context.Background(), []Message{activityMessage(2, "u1")})
	assert.Empty(t, published)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].reason, "registry down")
}

func TestSchemaCatalogIsValidJSON(t *testing.T) {
	for eventType, schema := range schemaCatalog {
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(schema), &doc), eventType)
		assert.Equal(t, "object", doc["type"], eventType)
	}
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	assert.Equal(t, 5, m.maxRetries)

	assert.Equal(t, time.Minute, m.backoffDelay(0))
	assert.Equal(t, time.Minute, m.backoffDelay(1))
	assert.Equal(t, 2*time.Minute, m.backoffDelay(2))
	assert.Equal(t, 16*time.Minute, m.backoffDelay(5))
	assert.Equal(t, time.Hour, m.backoffDelay(7))
	assert.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestSchemaRegistryClientRegistersMissingSubjectOnce(t *testing.T) {
	var (
		requests   atomic.Int32
		schemaType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/goal_events-value/versions/latest":
			http.Error(w, `{"error_code":40401}`, http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/goal_events-value/versions":
			var body struct {
				SchemaType string `json:"schemaType"`
				Schema     string `json:"schema"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode register body: %v", err)
			}
			schemaType = body.SchemaType
			_, _ = w.Write([]byte(`{"id":17}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	for i := 0; i < 3; i++ {
		id, err := client.EnsureSchema(context.Background(), "goal_events-value", goalCompletedSchema)
		require.NoError(t, err)
		assert.Equal(t, 17, id)
	}
	assert.Equal(t, "JSON", schemaType)
	assert.EqualValues(t, 2, requests.Load())
}

func TestSchemaRegistryClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", activityLoggedSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "activity_events-value")
}
