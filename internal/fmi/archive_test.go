package fmi

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestOpenArchive_Zip(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	fmu := filepath.Join(t.TempDir(), "pendulum.fmu")
	writeZip(t, fmu, map[string]string{
		"modelDescription.xml":         fmi2Description,
		"binaries/linux64/pendulum.so": "not really a library",
		"resources/data/table.csv":     "t,x\n0,1\n",
	})

	d, cleanup, err := OpenArchive(ctx, fmu)
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	assert.Equal(t, "pendulum", d.ModelIdentifier)
	assert.Equal(t, fmu, d.Path)
	assert.DirExists(t, d.Root)
	assert.FileExists(t, filepath.Join(d.Root, "resources", "data", "table.csv"))
	assert.True(t, strings.HasPrefix(d.BinaryPath, filepath.Join(d.Root, "binaries", platformDir())))
	assert.True(t, strings.HasSuffix(d.BinaryPath, "pendulum"+sharedLibExt()))

	require.NoError(t, cleanup())
	assert.NoDirExists(t, d.Root)
}

func TestOpenArchive_Directory(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, modelDescriptionFile), []byte(fmi1Description), 0o644))

	d, cleanup, err := OpenArchive(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, d.Root)
	require.NoError(t, cleanup())
	assert.DirExists(t, dir, "unpacked directories are never removed")
}

func TestOpenArchive_Errors(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()

	slip := filepath.Join(dir, "slip.fmu")
	writeZip(t, slip, map[string]string{"../evil.txt": "x"})

	noDesc := filepath.Join(dir, "empty.fmu")
	writeZip(t, noDesc, map[string]string{"readme.txt": "x"})

	notZip := filepath.Join(dir, "plain.fmu")
	require.NoError(t, os.WriteFile(notZip, []byte("plain text"), 0o644))

	testCases := []struct {
		name    string
		path    string
		errPart string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.fmu"), errPart: "cannot access"},
		{name: "zip slip", path: slip, errPart: "slip.fmu"},
		{name: "no model description", path: noDesc, errPart: modelDescriptionFile},
		{name: "not an archive", path: notZip, errPart: "failed to open archive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, cleanup, err := OpenArchive(ctx, tc.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
			require.NotNil(t, cleanup)
		})
	}
}
