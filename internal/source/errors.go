// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package source

import (
	"errors"
	"fmt"
)

// Reason classifies a capture acquisition failure. Callers decide per
// reason whether the failure is recoverable (retry one source) or
// fatal for the session.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonDeviceBusy       Reason = "device_busy"
	ReasonNoDevice         Reason = "no_device"
	ReasonInsecureContext  Reason = "insecure_context"
	ReasonUnknown          Reason = "unknown"
)

// CaptureError is the typed failure returned across the registry
// boundary. It is always returned as a value, never panicked.
type CaptureError struct {
	Reason Reason
	Kind   Kind
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("capture %s: %s", e.Kind, e.Reason)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// NewCaptureError builds a classified capture failure.
func NewCaptureError(reason Reason, kind Kind, err error) *CaptureError {
	return &CaptureError{Reason: reason, Kind: kind, Err: err}
}

// ReasonOf extracts the classified reason from err, or ReasonUnknown.
func ReasonOf(err error) Reason {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonUnknown
}
