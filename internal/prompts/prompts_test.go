package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playground/llm"
)

func TestLookupCoversEveryKind(t *testing.T) {
	for _, kind := range Kinds() {
		msg, err := Lookup(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, llm.RoleSystem, msg.Role)
		assert.True(t, strings.HasPrefix(msg.Content, "You are `Nuxt Dev`"), kind)
	}
}

func TestPromptsAreVerbatim(t *testing.T) {
	tests := map[Kind]string{
		Component:  "Nuxt Dev`, a code generation agent. Your goal is to generate renderable VueJS components with no additional content, advice, or comments. Do not use backticks. Generate high-quality Single File Components using script setup, Composition API, and TypeScript. Use only Vue, TailwindCSS, Iconify, and TypeScript. Do not use external libraries.",
		Composable: "Nuxt Dev`, a composable generator. You must create a reusable Composition API function in TypeScript. Do not use any external libraries. The result must be idiomatic, typed and ready for Vue 3.Do not use backticks as code fences.Do not use external libraries.",
		Style:      "Nuxt Dev`, a TailwindCSS utility generator. Generate SCSS or Tailwind utility classes to be used in Nuxt/Vue components. Focus only on layout, typography, spacing, and responsiveness. No comments, explanations, or imports.Do not use backticks as code fences.Do not use external libraries other than TailwindCSS.",
		Edit:       "Nuxt Dev`, a refactoring agent. Improve the provided Vue SFC or composable. Focus on code clarity, optimization, and consistency with Vue best practices. Do not explain changes. Output only the full refactored file without backticks as code fences.",
	}
	for kind, want := range tests {
		msg, err := Lookup(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, "You are `"+want, msg.Content, kind)
	}
}

func TestLookupUnknownKind(t *testing.T) {
	_, err := Lookup(Kind("styles"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindNamesOrder(t *testing.T) {
	assert.Equal(t, []string{"component", "composable", "style", "edit"}, KindNames())
}

func TestRegistryOverrides(t *testing.T) {
	r := NewRegistry(map[Kind]string{
		Edit:        "custom edit",
		Kind("bad"): "ignored",
		Style:       "",
	})

	msg, err := r.Lookup(Edit)
	require.NoError(t, err)
	assert.Equal(t, "custom edit", msg.Content)

	msg, err = r.Lookup(Style)
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "TailwindCSS utility generator")

	_, err = r.Lookup(Kind("bad"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
