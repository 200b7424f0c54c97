package vfs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSandbox struct{}

func (failingSandbox) WriteFile(string, []byte) error { return errors.New("disk full") }

func TestNewVirtualFileRequiresSandbox(t *testing.T) {
	_, err := NewVirtualFile("a.vue", "", nil)
	assert.ErrorIs(t, err, ErrNoSandbox)
}

func TestWriteMaterializesIntoSandbox(t *testing.T) {
	sb := NewMemorySandbox()
	f, err := NewVirtualFile("components/Foo.vue", "", sb)
	require.NoError(t, err)

	require.NoError(t, f.Write("<template/>"))
	assert.Equal(t, "<template/>", f.Content())

	data, err := sb.ReadFile("components/Foo.vue")
	require.NoError(t, err)
	assert.Equal(t, "<template/>", string(data))

	require.NoError(t, f.Write("<template>ok</template>"))
	data, err = sb.ReadFile("components/Foo.vue")
	require.NoError(t, err)
	assert.Equal(t, "<template>ok</template>", string(data))
}

func TestWritePropagatesSandboxError(t *testing.T) {
	f, err := NewVirtualFile("a.vue", "", failingSandbox{})
	require.NoError(t, err)
	err = f.Write("x")
	require.Error(t, err)
	assert.Equal(t, "x", f.Content())
}

func TestDiskSandbox(t *testing.T) {
	root := t.TempDir()
	sb, err := NewDiskSandbox(root)
	require.NoError(t, err)

	require.NoError(t, sb.WriteFile("pages/index.vue", []byte("hi")))
	assert.FileExists(t, filepath.Join(root, "pages", "index.vue"))
}

func TestStoreOrderAndOverwrite(t *testing.T) {
	sb := NewMemorySandbox()
	s := NewStore()

	a, _ := NewVirtualFile("a.vue", "1", sb)
	b, _ := NewVirtualFile("b.vue", "2", sb)
	a2, _ := NewVirtualFile("a.vue", "3", sb)

	s.Set("a.vue", a)
	s.Set("b.vue", b)
	s.Set("a.vue", a2)

	assert.Equal(t, []string{"a.vue", "b.vue"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	got, ok := s.Get("a.vue")
	require.True(t, ok)
	assert.Same(t, a2, got)

	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "3", files[0].Content())

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Keys())
}

func TestStoreHasDir(t *testing.T) {
	sb := NewMemorySandbox()
	s := NewStore()
	f, _ := NewVirtualFile("a/b/c.vue", "", sb)
	s.Set(f.Filepath(), f)

	assert.True(t, s.HasDir("a"))
	assert.True(t, s.HasDir("a/b"))
	assert.False(t, s.HasDir("a/b/c.vue"))
	assert.False(t, s.HasDir("a/bc"))
	assert.False(t, s.HasDir("x"))
}

func TestDirAndPlaceholder(t *testing.T) {
	tests := []struct {
		path string
		dir  string
	}{
		{"components/Foo.vue", "components"},
		{"a/b/c.vue", "a/b"},
		{"App.vue", ""},
		{"./components/Foo.vue", "./components"},
		{"a//b/c.vue", "a//b"},
		{"x/../y/z.vue", "x/../y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.dir, Dir(tt.path), tt.path)
	}
	assert.Equal(t, "a/b/.gitkeep", Placeholder("a/b"))
	assert.Equal(t, "./components/.gitkeep", Placeholder("./components"))
	assert.Equal(t, "a//b/.gitkeep", Placeholder("a//b"))
	assert.Equal(t, "x/../y/.gitkeep", Placeholder("x/../y"))
}
