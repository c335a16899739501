package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
revenue_neutral: true
improvement_rate: 0.001
group_by:
  - income_bracket
  - tract
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.RevenueNeutral)
	assert.Equal(t, 0.001, cfg.ImprovementRate)
	assert.Equal(t, []string{"income_bracket", "tract"}, cfg.GroupBy)
}

func TestLoadConfig_InvalidRejected(t *testing.T) {
	path := writeConfig(t, `
revenue_neutral: true
land_rate: 0.02
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "revenue_neutral: [not a bool")
	_, err := LoadConfig(path)
	require.Error(t, err)
}
