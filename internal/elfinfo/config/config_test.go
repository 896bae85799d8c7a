package config

import (
	"debug/elf"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every lookup at an empty temporary directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"ELF", "ELFINFO_SYNTAX", "ELFINFO_ARCH", "ELFINFO_NO_COLOR", "ELFINFO_PAGER", "NO_COLOR"} {
		t.Setenv(k, "")
	}
	t.Setenv("ELFINFO_CONFIG", filepath.Join(dir, "config.yaml"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayers(t *testing.T) {
	dir := isolate(t)
	yml := "path: /bin/true\nsyntax: intel\npager: true\ndemangle: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/bin/true", cfg.Path)
	assert.Equal(t, "intel", cfg.Syntax)
	assert.True(t, cfg.Pager)
	assert.False(t, cfg.Demangle)
	assert.True(t, cfg.Color)

	t.Setenv("ELF", "/bin/ls")
	t.Setenv("ELFINFO_PAGER", "false")
	t.Setenv("ELFINFO_NO_COLOR", "1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "/bin/ls", cfg.Path)
	assert.False(t, cfg.Pager)
	assert.False(t, cfg.Color)
}

func TestNoColor(t *testing.T) {
	isolate(t)
	t.Setenv("NO_COLOR", "yes")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Color)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		env  map[string]string
	}{
		{name: "bad yaml", yml: "syntax: [att\n"},
		{name: "bad syntax", yml: "syntax: motorola\n"},
		{name: "bad arch", env: map[string]string{"ELFINFO_ARCH": "mips"}},
		{name: "bad bool", env: map[string]string{"ELFINFO_PAGER": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.yml != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.yml), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMachine(t *testing.T) {
	m, ok := (&Config{Arch: "arm64"}).Machine()
	assert.True(t, ok)
	assert.Equal(t, elf.EM_AARCH64, m)

	_, ok = (&Config{}).Machine()
	assert.False(t, ok)
}

func TestSchema(t *testing.T) {
	b, err := json.Marshal(Schema())
	require.NoError(t, err)
	assert.Contains(t, string(b), "demangle")
	assert.Contains(t, string(b), "intel")
}
