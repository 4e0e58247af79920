package consumer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// decode strips the Confluent wire header and lifts the routing headers.
func decode(record kafka.Message) (Message, error) {
	if len(record.Value) < 5 {
		return Message{}, fmt.Errorf("record too short: %d bytes", len(record.Value))
	}
	if magic := record.Value[0]; magic != 0 {
		return Message{}, fmt.Errorf("unknown magic byte %d", magic)
	}

	hdr := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		hdr[h.Key] = string(h.Value)
	}
	eventType, ok := hdr["event_type"]
	if !ok || eventType == "" {
		return Message{}, errors.New("missing event_type header")
	}

	payload := make([]byte, len(record.Value)-5)
	copy(payload, record.Value[5:])

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		EventType:     eventType,
		UserID:        hdr["user_id"],
		SchemaSubject: hdr["schema_subject"],
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:5])),
		Payload:       payload,
	}, nil
}
