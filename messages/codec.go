package messages

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// json is the codec shared by both legs. ConfigStd keeps encoding/json
// semantics (sorted map keys, float64 numbers) so payloads stay stable.
var json = sonic.ConfigStd

// Encode serializes a wire message.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}

// Decode parses a wire message into v.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
