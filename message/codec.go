package message

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("message: cbor encode mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IntDec:           cbor.IntDecConvertSigned,
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("message: cbor decode mode: %v", err))
	}
}

// Marshal encodes v as deterministic CBOR for use as a command payload.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("message: encode payload: %w", err)
	}

	return data, nil
}

// Unmarshal decodes a CBOR payload into v.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("message: decode payload: empty payload")
	}

	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("message: decode payload: %w", err)
	}

	return nil
}

// DecodeInto returns a decoder that unmarshals CBOR payloads into a new R.
func DecodeInto[R any]() func([]byte) (R, error) {
	return func(data []byte) (R, error) {
		var out R
		if err := Unmarshal(data, &out); err != nil {
			return out, err
		}

		return out, nil
	}
}
