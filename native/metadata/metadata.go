package metadata

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInconsistentMetadata is returned when the parallel name/value/type
// slices do not share a single length.
var ErrInconsistentMetadata = errors.New("metadata: inconsistent property lengths")

// Property is a single named attribute attached to a listing snapshot.
type Property struct {
	Name  string
	Value []byte
	Type  string
}

type propertyList struct {
	Properties []Property
}

// Encode packs parallel property slices into an opaque blob stored on the
// listing. The three slices must have equal length.
func Encode(names []string, values [][]byte, types []string) ([]byte, error) {
	if len(names) != len(values) || len(names) != len(types) {
		return nil, fmt.Errorf("%w: names=%d values=%d types=%d", ErrInconsistentMetadata, len(names), len(values), len(types))
	}
	props := make([]Property, len(names))
	for i := range names {
		props[i] = Property{Name: names[i], Value: append([]byte(nil), values[i]...), Type: types[i]}
	}
	encoded, err := rlp.EncodeToBytes(propertyList{Properties: props})
	if err != nil {
		return nil, fmt.Errorf("metadata: encode: %w", err)
	}
	return encoded, nil
}

// Decode unpacks a blob produced by Encode. Used for display only; the
// ledger treats the blob as opaque.
func Decode(blob []byte) ([]Property, error) {
	var list propertyList
	if err := rlp.DecodeBytes(blob, &list); err != nil {
		return nil, fmt.Errorf("metadata: decode: %w", err)
	}
	return list.Properties, nil
}
