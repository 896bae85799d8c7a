package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBinary is the running test executable, a real ELF file.
func testBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("test binary is not ELF")
	}
	path, err := os.Executable()
	require.NoError(t, err)
	return path
}

// execute runs the command tree with a clean environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"ELF", "ELFINFO_SYNTAX", "ELFINFO_ARCH", "ELFINFO_PAGER", "ELFINFO_NO_COLOR"} {
		t.Setenv(k, "")
	}
	t.Setenv("ELFINFO_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSummaryIsDefault(t *testing.T) {
	bin := testBinary(t)
	out, err := execute(t, bin)
	require.NoError(t, err)
	assert.Contains(t, out, "ELF HEADER")
	assert.Contains(t, out, "PROGRAM HEADERS")
	assert.Contains(t, out, "SECTIONS")
	assert.NotContains(t, out, "\x1b[", "no colour when not on a terminal")
}

func TestFileFromEnvironment(t *testing.T) {
	bin := testBinary(t)
	_, err := execute(t, "header")
	assert.EqualError(t, err, errNoFile.Error())

	t.Setenv("ELF", bin)
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"h"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Entry point address")
}

func TestCommands(t *testing.T) {
	bin := testBinary(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"header", []string{"header", bin}, "Ident's class"},
		{"program headers", []string{"ph", bin}, "LOAD"},
		{"sections", []string{"sections", bin}, ".text"},
		{"section", []string{"sh", ".text", "-n", "16", bin}, "SECTION \".text\""},
		{"symbols", []string{"sym", "-f", "TestCommands$", bin}, "TestCommands"},
		{"fn", []string{"fn", "elfinfo/internal/elfinfo/cmd.newRootCmd", bin}, "elfinfo/internal/elfinfo/cmd.newRootCmd:"},
		{"fn intel", []string{"fn", "--syntax", "intel", "elfinfo/internal/elfinfo/cmd.newRootCmd", bin}, "│  "},
		{"relocations", []string{"rel", bin}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSectionExport(t *testing.T) {
	bin := testBinary(t)
	path := filepath.Join(t.TempDir(), "text.bin")
	out, err := execute(t, "section", ".text", "-n", "32", "-o", path, bin)
	require.NoError(t, err)
	assert.Contains(t, out, "has been saved to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 32)
}

func TestErrors(t *testing.T) {
	bin := testBinary(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing symbol", []string{"fn", "no_such_function", bin}, "couldn't find symbol"},
		{"bad address", []string{"fn", "-a", "xyz", bin}, "couldn't parse memory address"},
		{"bad syntax", []string{"fn", "--syntax", "motorola", "main.main", bin}, "syntax"},
		{"bad type", []string{"sym", "-t", "blob", bin}, "unknown symbol type"},
		{"bad filter", []string{"sym", "-f", "(", bin}, "invalid filter"},
		{"missing section", []string{"sh", ".nope", bin}, "couldn't find section"},
		{"missing file", []string{"header", filepath.Join(t.TempDir(), "nope")}, "couldn't open ELF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errNoFile)
	assert.True(t, strings.HasPrefix(buf.String(), "error: No ELF file provided"))
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"syntax"`)
}
