package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCaches(t *testing.T) {
	r, err := NewRenderer(2)
	require.NoError(t, err)

	out, err := r.Render("**bold** and ~~gone~~")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<del>gone</del>")

	again, err := r.Render("**bold** and ~~gone~~")
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Equal(t, 1, r.Cached())

	_, _ = r.Render("a")
	_, _ = r.Render("b")
	assert.Equal(t, 2, r.Cached())
}

func TestExtractCodeBlocks(t *testing.T) {
	src := "Here you go:\n\n```vue\n<template/>\n```\n\nand\n\n```\nplain\n```\n"
	blocks, err := ExtractCodeBlocks([]byte(src))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "vue", blocks[0].Lang)
	assert.Equal(t, "<template/>\n", blocks[0].Content)
	assert.Equal(t, "", blocks[1].Lang)
	assert.Equal(t, "plain\n", blocks[1].Content)
}

func TestUnwrapFence(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		strips bool
	}{
		{"wrapped", "```vue\n<template>\n  <div/>\n</template>\n```", "<template>\n  <div/>\n</template>\n", true},
		{"surrounding space", "\n```ts\nexport {}\n```\n\n", "export {}\n", true},
		{"bare code", "export default {}", "export default {}", false},
		{"text after fence", "```\na\n```\nmore", "```\na\n```\nmore", false},
		{"unclosed", "```\nabc", "```\nabc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := UnwrapFence(tt.in)
			assert.Equal(t, tt.strips, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
