package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanAppliesIncludeAndExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\nThe database\n")
	writeFile(t, dir, "b.ts", "import { helper } from './a'\n")
	writeFile(t, dir, filepath.Join("node_modules", "c.js"), "ignored\n")

	s, err := New(dir, DefaultConfig())
	require.NoError(t, err)

	files, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, files, 2)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.ElementsMatch(t, []string{"a.md", "b.ts"}, names)
}

func TestScanSkipsDotfilesAndUnknownExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.md", "hidden\n")
	writeFile(t, dir, filepath.Join(".git", "config.md"), "hidden dir\n")
	writeFile(t, dir, "image.png", "binary\n")
	writeFile(t, dir, "keep.md", "# Keep\n")

	s, err := New(dir, DefaultConfig())
	require.NoError(t, err)

	files, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.md", filepath.Base(files[0].Path))
}

func TestScanSkipsOversizeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.md", "ok\n")

	big := make([]byte, 2048)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.md"), big, 0o644))

	cfg := DefaultConfig()
	cfg.MaxFileSizeBytes = 1024

	s, err := New(dir, cfg)
	require.NoError(t, err)

	files, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "small.md", filepath.Base(files[0].Path))
}

func TestScanDescriptorFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "# A\n")

	s, err := New(dir, DefaultConfig())
	require.NoError(t, err)

	files, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, ".md", files[0].Kind)
	assert.Equal(t, int64(4), files[0].SizeBytes)
	assert.False(t, files[0].ModTime.IsZero())
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), DefaultConfig())
	assert.Error(t, err)
}

func TestNewRootIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "x")

	_, err := New(filepath.Join(dir, "a.md"), DefaultConfig())
	assert.Error(t, err)
}

func TestAccepts(t *testing.T) {
	s, err := New(t.TempDir(), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, s.Accepts("docs/a.md", "a.md"))
	assert.False(t, s.Accepts(".env", ".env"))
	assert.False(t, s.Accepts(".git/a.md", "a.md"))
	assert.False(t, s.Accepts("node_modules/a.md", "a.md"))
	assert.False(t, s.Accepts("a.png", "a.png"))
	assert.True(t, s.Accepts("b.ts", "b.ts"))
}
