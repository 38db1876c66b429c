// Package api is the public entry-point layer: it orchestrates the
// lower components, applies default options, and maps every outcome into
// either a direct (value, error) pair or, for the handful of operations
// whose result must distinguish ok/gate-not-met/failed, a status envelope.
// Blob f32 vectors cross this boundary as plain []float32 — byte-buffer
// marshaling is the embedder's concern, not this package's.
package api

import "github.com/coderdj/frkb-engine/internal/errors"

// Failed carries the {errorCode, message} pair used by the status-envelope
// operations (training, prediction) instead of a Go error return.
type Failed struct {
	ErrorCode string
	Message   string
}

func failedFrom(err error) *Failed {
	if err == nil {
		return nil
	}
	return &Failed{ErrorCode: errors.Code(err), Message: err.Error()}
}
