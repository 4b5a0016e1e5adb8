package metrics

import (
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var m Metrics = Noop{}
	m.IncOperation("install", OutcomeSuccess)
	m.ObserveDuration("install", 1)
	m.IncValidationIssue("archive.missing")
	m.IncBackup()
	m.IncSwept("file")
}

func TestPromMetrics(t *testing.T) {
	m := NewProm()
	m.IncOperation("install", OutcomeSuccess)
	m.IncOperation("install", OutcomeSuccess)
	m.ObserveDuration("install", 0.25)
	m.IncValidationIssue("archive.missing")
	m.IncBackup()
	m.IncSwept("dir")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	assert.True(t, hasMetric(families, "extpack_operations_total", map[string]string{"operation": "install", "outcome": "success"}))
	assert.Equal(t, 2.0, counterValue(families, "extpack_operations_total"))
	assert.True(t, hasMetric(families, "extpack_operation_duration_seconds", map[string]string{"operation": "install"}))
	assert.True(t, hasMetric(families, "extpack_validation_issues_total", map[string]string{"code": "archive.missing"}))
	assert.Equal(t, 1.0, counterValue(families, "extpack_module_backups_total"))
	assert.True(t, hasMetric(families, "extpack_swept_total", map[string]string{"kind": "dir"}))
}

func TestPromRegistriesAreIndependent(t *testing.T) {
	first := NewProm()
	second := NewProm()
	first.IncBackup()

	families, err := second.Registry().Gather()
	require.NoError(t, err)
	assert.Equal(t, 0.0, counterValue(families, "extpack_module_backups_total"))
}

func TestWriteTextfile(t *testing.T) {
	m := NewProm()
	m.IncOperation("uninstall", OutcomeError)

	path := filepath.Join(t.TempDir(), "textfile", "extpack.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `extpack_operations_total{operation="uninstall",outcome="error"} 1`)
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func counterValue(families []*dto.MetricFamily, name string) float64 {
	var total float64
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func labelsMatch(pairs []*dto.LabelPair, expected map[string]string) bool {
	if len(expected) == 0 {
		return true
	}
	found := 0
	for _, pair := range pairs {
		if val, ok := expected[pair.GetName()]; ok && val == pair.GetValue() {
			found++
		}
	}
	return found == len(expected)
}
