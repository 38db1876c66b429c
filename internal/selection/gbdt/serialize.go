package gbdt

import (
	"bytes"
	"encoding/gob"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// Encode serializes a fitted model to a portable binary blob.
func Encode(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errors.New(err).Component("gbdt").Category(errors.CategoryInternal).Build()
	}
	return buf.Bytes(), nil
}

// Decode deserializes a model previously produced by Encode.
func Decode(blob []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&m); err != nil {
		return nil, errors.New(err).Component("gbdt").Category(errors.CategoryModelLoad).Build()
	}
	return &m, nil
}
