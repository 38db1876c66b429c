package model

import (
	"bytes"
	"encoding/gob"

	"github.com/coderdj/frkb-engine/internal/errors"
)

// Serialize packs a trained model artifact into the bytes written to
// selection_gbdt_v1.bin.
func Serialize(m *TrainedModel) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errors.New(err).Component("selection_model").Category(errors.CategoryInternal).Build()
	}
	return buf.Bytes(), nil
}

// Deserialize loads a trained model artifact previously written by Serialize.
func Deserialize(blob []byte) (*TrainedModel, error) {
	var m TrainedModel
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&m); err != nil {
		return nil, errors.New(err).Component("selection_model").Category(errors.CategoryModelLoad).Build()
	}
	return &m, nil
}
