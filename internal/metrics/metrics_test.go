package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistryRegistersWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.BytesIn.WithLabelValues("0").Add(10)
	m.Resumes.WithLabelValues("0").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}

func TestHumanizeBytes(t *testing.T) {
	if got := HumanizeBytes(0); got == "" {
		t.Error("HumanizeBytes(0) should not be empty")
	}
	if got := HumanizeBytes(1024 * 1024); got == "" {
		t.Error("HumanizeBytes(1MB) should not be empty")
	}
}
