package ai

import (
	"context"
	"errors"
)

// ErrDisabled marks calls against the disabled provider. Processors
// treat it like any other AI failure and use their fallbacks, so the
// pipeline runs end to end without API access.
var ErrDisabled = errors.New("ai provider disabled")

// Disabled is a Provider that fails every call immediately. This is the
// default backend: a fresh deployment produces keyword-only digests
// until an API key is configured.
type Disabled struct{}

// NewDisabled creates a new Disabled provider.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Name implements Provider.
func (d *Disabled) Name() string {
	return "disabled"
}

// RunStructured rejects the call without touching the network, the rate
// gate or metrics.
func (d *Disabled) RunStructured(_ context.Context, req Request, _ any) error {
	return &Error{Provider: d.Name(), Operation: req.Operation, Message: "provider disabled", Err: ErrDisabled}
}
