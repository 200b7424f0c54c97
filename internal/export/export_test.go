package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playground/internal/vfs"
)

func files(t *testing.T, contents map[string]string, order ...string) []*vfs.VirtualFile {
	t.Helper()
	sandbox := vfs.NewMemorySandbox()
	var out []*vfs.VirtualFile
	for _, p := range order {
		f, err := vfs.NewVirtualFile(p, contents[p], sandbox)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func TestFSExporter(t *testing.T) {
	fs := memfs.New()
	in := files(t, map[string]string{
		"components/.gitkeep": "",
		"components/Foo.vue":  "<template/>",
		"app.vue":             "<NuxtPage/>",
	}, "components/.gitkeep", "components/Foo.vue", "app.vue")

	n, err := NewFSExporter(fs, nil).Export(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := util.ReadFile(fs, "components/Foo.vue")
	require.NoError(t, err)
	assert.Equal(t, "<template/>", string(data))

	_, err = fs.Stat("components/.gitkeep")
	assert.NoError(t, err)
}

func TestDirExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	exp, err := NewDirExporter(dir, nil)
	require.NoError(t, err)

	in := files(t, map[string]string{"pages/index.vue": "<div/>"}, "pages/index.vue")
	n, err := exp.Export(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(dir, "pages", "index.vue"))
	require.NoError(t, err)
	assert.Equal(t, "<div/>", string(data))

	_, err = NewDirExporter(" ", nil)
	assert.Error(t, err)
}

func TestExportStaysInsideRoot(t *testing.T) {
	fs := memfs.New()
	in := files(t, map[string]string{"../../etc/passwd": "x"}, "../../etc/passwd")

	_, err := NewFSExporter(fs, nil).Export(context.Background(), in)
	require.NoError(t, err)

	data, err := util.ReadFile(fs, "etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := NewFSExporter(memfs.New(), nil).Export(ctx, files(t, map[string]string{"a": "1"}, "a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestNewS3ExporterValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"no endpoint", S3Config{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"no credentials", S3Config{Endpoint: "localhost:9000", Bucket: "c"}},
		{"no bucket", S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Exporter(tt.cfg, nil)
			assert.Error(t, err)
		})
	}

	exp, err := NewS3Exporter(S3Config{
		Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "snapshots", Prefix: "/runs/1/",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "runs/1/components/Foo.vue", exp.objectKey("components/Foo.vue"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/x-vue; charset=utf-8", contentType("a/B.vue"))
	assert.Equal(t, "application/octet-stream", contentType(".gitkeep"))
	assert.Contains(t, contentType("main.css"), "text/css")
}
