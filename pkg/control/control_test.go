package control

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_FieldOrder(t *testing.T) {
	t.Parallel()

	out := Render(Fields{
		Package:       "hello-cli",
		Version:       "1.2.3-1",
		Architecture:  "amd64",
		Maintainer:    "Jane Doe <jane@example.com>",
		InstalledSize: 1025,
		Section:       "utils",
		Priority:      "optional",
		Homepage:      "https://example.com",
		Description:   "A hello world tool.",
		Depends:       []string{"libc6 (>= 2.31)"},
		Recommends:    []string{"bash"},
	})

	expected := "Package: hello-cli\n" +
		"Version: 1.2.3-1\n" +
		"Architecture: amd64\n" +
		"Maintainer: Jane Doe <jane@example.com>\n" +
		"Installed-Size: 2\n" +
		"Depends: libc6 (>= 2.31)\n" +
		"Recommends: bash\n" +
		"Section: utils\n" +
		"Priority: optional\n" +
		"Homepage: https://example.com\n" +
		"Description: A hello world tool.\n"

	assert.Equal(t, expected, out)
}

func TestRender_MultilineDescription(t *testing.T) {
	t.Parallel()

	out := Render(Fields{
		Package:      "hello-cli",
		Version:      "1.0.0",
		Architecture: "amd64",
		Maintainer:   "Jane Doe <jane@example.com>",
		Description:  "Short summary.\n\nLonger paragraph line.",
	})

	assert.Contains(t, out, "Description: Short summary.\n")
	assert.Contains(t, out, " .\n")
	assert.Contains(t, out, " Longer paragraph line.\n")
}

func TestKibibytes_RoundsUp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1), kibibytes(1))
	assert.Equal(t, int64(1), kibibytes(1024))
	assert.Equal(t, int64(2), kibibytes(1025))
}

func TestConfFiles(t *testing.T) {
	t.Parallel()

	out := ConfFiles([]string{"/etc/hello.conf", "/etc/other.conf"})
	assert.Equal(t, "/etc/hello.conf\n/etc/other.conf\n", out)
}

func TestTriggers(t *testing.T) {
	t.Parallel()

	out := Triggers([]string{"interest usr/bin", "activate-noawait ldconfig"})
	assert.Equal(t, "interest usr/bin\nactivate-noawait ldconfig\n", out)
}

func TestScripts_Render_GuardsRemoveOnly(t *testing.T) {
	t.Parallel()

	scripts := Scripts{
		PreInst: "echo preinst",
		PreRm:   "echo prerm",
	}

	rendered := scripts.Render()

	assert.Equal(t, "echo preinst", rendered["preinst"])
	assert.Contains(t, rendered["prerm"], removeHeader)
	assert.Contains(t, rendered["prerm"], "echo prerm")
	assert.NotContains(t, rendered, "postinst")
	assert.NotContains(t, rendered, "postrm")
}

func TestWriteScripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := WriteScripts(dir, Scripts{PostInst: "echo hi"})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "postinst"))
	require.NoError(t, err)
	assert.Equal(t, "echo hi", string(content))
}

func TestMD5Sums(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bin", "hello")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	out, err := MD5Sums(map[string]string{"usr/bin/hello": path})
	require.NoError(t, err)
	assert.Contains(t, out, "usr/bin/hello")
	assert.Contains(t, out, "5eb63bbbe01eeed093cb22bb8f5acdc3")
}
