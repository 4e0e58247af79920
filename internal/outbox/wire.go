package outbox

import (
	"encoding/binary"

	"github.com/segmentio/kafka-go"
)

const magicByte byte = 0

// frame prefixes payload with the Confluent wire header: magic byte, then the
// schema id as a big-endian uint32.
func frame(schemaID int, payload []byte) []byte {
	out := make([]byte, 5, 5+len(payload))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:], uint32(schemaID))
	return append(out, payload...)
}

// headers carry what consumers route on without decoding the payload.
func headers(msg Message) []kafka.Header {
	return []kafka.Header{
		{Key: "event_type", Value: []byte(msg.EventType)},
		{Key: "user_id", Value: []byte(msg.UserID)},
		{Key: "schema_subject", Value: []byte(msg.SchemaSubject)},
	}
}
