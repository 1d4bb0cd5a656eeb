package messaging

import (
	"encoding/json"
	"log"
)

// A Codec translates between typed message values and wire payloads.
type Codec interface {
	// Encode serializes a message value.
	Encode(v any) ([]byte, error)

	// Decode deserializes a payload into the value pointed to by v.
	Decode(payload []byte, v any) error
}

// JSONCodec encodes message values as JSON.
type JSONCodec struct{}

// Encode serializes the value as JSON.
func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes the JSON payload into v, which must be a pointer.
func (JSONCodec) Decode(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}

// SubscribeDecoded subscribes to a topic and invokes fn with decoded message
// values instead of raw payloads. The allocator must return a pointer to a
// fresh zero value of the message type for the codec to decode into.
//
// Payloads that fail to decode are logged and dropped. The subscriber only
// ever sees successfully decoded messages.
func SubscribeDecoded(
	node Node,
	topic string,
	queueDepth int,
	codec Codec,
	allocator func() any,
	fn func(v any),
) (Subscription, error) {
	return node.Subscribe(topic, queueDepth, func(payload []byte) {
		v := allocator()

		if err := codec.Decode(payload, v); err != nil {
			log.Printf("messaging: dropping undecodable payload on %s: %v",
				topic, err)
			return
		}

		fn(v)
	})
}
