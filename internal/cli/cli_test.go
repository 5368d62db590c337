package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns what it printed.
// Flag values are reset afterwards since the commands are package globals.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "convert")
	assert.Contains(t, names, "outline")
	assert.Contains(t, names, "stats")
}

func TestConvert_MarkdownToHTML(t *testing.T) {
	in := writeFile(t, "doc.md", "# Hello\n\nSome *text*\n")
	out := filepath.Join(filepath.Dir(in), "doc.html")

	_, err := run(t, "convert", in, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h1>Hello</h1>")
	assert.Contains(t, string(data), "<em>text</em>")
}

func TestConvert_Stdout(t *testing.T) {
	in := writeFile(t, "notes", "one\n\ntwo")

	got, err := run(t, "convert", in, "--from", "txt", "--to", "md", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", got)

	_, err = run(t, "convert", in, "--from", "txt", "-o", "-")
	assert.Error(t, err)
}

func TestConvert_Errors(t *testing.T) {
	in := writeFile(t, "doc.txt", "x")

	_, err := run(t, "convert", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"output" not set`)

	_, err = run(t, "convert", in, "-o", filepath.Join(t.TempDir(), "doc.rtf"))
	assert.Error(t, err)

	_, err = run(t, "convert", filepath.Join(t.TempDir(), "missing.txt"), "-o", "-", "--to", "txt")
	assert.Error(t, err)

	_, err = run(t, "convert", in, "-o", filepath.Join(t.TempDir(), "doc.pdf"))
	assert.Error(t, err)
}

func TestOutline(t *testing.T) {
	in := writeFile(t, "doc.md", "# Top\n\n## Sub\n\ntext\n\n### Deeper\n")

	got, err := run(t, "outline", in)
	require.NoError(t, err)
	assert.Equal(t, "Top\n  Sub\n    Deeper\n", got)

	got, err = run(t, "outline", in, "--json")
	require.NoError(t, err)
	assert.Contains(t, got, `"text": "Sub"`)
	assert.Contains(t, got, `"level": 2`)
}

func TestStats(t *testing.T) {
	in := writeFile(t, "doc.txt", "Hello   world\n\nfoo")

	got, err := run(t, "stats", in)
	require.NoError(t, err)
	assert.Equal(t, "characters: 18\nwords:      3\nlines:      2\n", got)

	got, err = run(t, "stats", in, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"characters":18,"words":3,"lines":2}`, got)
}

func TestConfigFlag(t *testing.T) {
	cfgPath := writeFile(t, "bedit.toml", "max_upload_bytes = 4\n")
	in := writeFile(t, "doc.txt", "longer than four bytes")

	_, err := run(t, "--config", cfgPath, "stats", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "none.toml"), "stats", in)
	assert.Error(t, err)
}
