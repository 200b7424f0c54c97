// Package markdown renders chat messages to HTML and inspects fenced code
// blocks in model output.
package markdown

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DefaultCacheSize is the number of rendered documents kept by NewRenderer.
const DefaultCacheSize = 256

// Renderer converts markdown to HTML, caching by content hash. Construct one
// and pass it to whatever needs it.
type Renderer struct {
	md    goldmark.Markdown
	cache *lru.Cache[string, string]
}

// NewRenderer builds a GFM renderer with an LRU of the given size
// (DefaultCacheSize when size <= 0).
func NewRenderer(size int) (*Renderer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("init markdown cache: %w", err)
	}
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{md: md, cache: cache}, nil
}

// Render returns the HTML for src.
func (r *Renderer) Render(src string) (string, error) {
	sum := sha256.Sum256([]byte(src))
	key := hex.EncodeToString(sum[:])
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	out := buf.String()
	r.cache.Add(key, out)
	return out, nil
}

// Cached reports how many documents are held in the cache.
func (r *Renderer) Cached() int {
	return r.cache.Len()
}

// CodeBlock is one fenced block found in a markdown document.
type CodeBlock struct {
	Lang    string
	Content string
}

// ExtractCodeBlocks returns every fenced code block in source, in order.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []CodeBlock
	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		blocks = append(blocks, CodeBlock{
			Lang:    string(fenced.Language(source)),
			Content: blockContent(fenced, source),
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// UnwrapFence strips a single code fence wrapping the whole of src. It
// returns src unchanged and false when src is anything other than exactly
// one closed fenced block.
func UnwrapFence(src string) (string, bool) {
	trimmed := strings.TrimSpace(src)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return src, false
	}

	source := []byte(trimmed)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))
	if root.ChildCount() != 1 {
		return src, false
	}
	fenced, ok := root.FirstChild().(*ast.FencedCodeBlock)
	if !ok {
		return src, false
	}
	return blockContent(fenced, source), true
}

func blockContent(fenced *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := fenced.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}
