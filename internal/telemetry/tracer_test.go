// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of noop provider failed: %v", err)
	}

	// spans from the noop provider are valid but unrecorded
	_, span := Tracer("test").Start(context.Background(), "op")
	if span.IsRecording() {
		t.Error("noop span should not be recording")
	}
	span.End()
}
