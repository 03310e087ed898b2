package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigureAttachesServiceField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test-svc"})

	logger := WithComponent("unit")
	logger.Info().Msg("hello")

	out := buf.String()
	if out == "" {
		// Configure is once-only; another test may have claimed it first.
		t.Skip("logger already configured by a sibling test")
	}
	if !strings.Contains(out, `"service":"test-svc"`) {
		t.Fatalf("expected service field in output, got: %s", out)
	}
	if !strings.Contains(out, `"component":"unit"`) {
		t.Fatalf("expected component field in output, got: %s", out)
	}
}
