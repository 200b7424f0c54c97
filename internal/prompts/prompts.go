// Package prompts holds the fixed system instructions that govern each
// generation kind.
package prompts

import (
	"errors"
	"fmt"

	"playground/llm"
)

// Kind selects which system prompt governs a generation request.
type Kind string

const (
	Component  Kind = "component"
	Composable Kind = "composable"
	Style      Kind = "style"
	Edit       Kind = "edit"
)

// ErrUnknownKind is returned by Lookup for a kind outside the closed set.
var ErrUnknownKind = errors.New("unknown generation kind")

var kinds = []Kind{Component, Composable, Style, Edit}

// Kinds lists the closed set of generation kinds in tool-schema order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// KindNames is Kinds as plain strings, for schema enums.
func KindNames() []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

var systemPrompts = map[Kind]string{
	Component: "You are `Nuxt Dev`, a code generation agent. Your goal is to generate renderable VueJS components with no additional content, advice, or comments. " +
		"Do not use backticks. Generate high-quality Single File Components using script setup, Composition API, and TypeScript. " +
		"Use only Vue, TailwindCSS, Iconify, and TypeScript. Do not use external libraries.",
	Composable: "You are `Nuxt Dev`, a composable generator. You must create a reusable Composition API function in TypeScript. " +
		"Do not use any external libraries. The result must be idiomatic, typed and ready for Vue 3." +
		"Do not use backticks as code fences.Do not use external libraries.",
	Style: "You are `Nuxt Dev`, a TailwindCSS utility generator. Generate SCSS or Tailwind utility classes to be used in Nuxt/Vue components. " +
		"Focus only on layout, typography, spacing, and responsiveness. No comments, explanations, or imports." +
		"Do not use backticks as code fences.Do not use external libraries other than TailwindCSS.",
	Edit: "You are `Nuxt Dev`, a refactoring agent. Improve the provided Vue SFC or composable. " +
		"Focus on code clarity, optimization, and consistency with Vue best practices. " +
		"Do not explain changes. Output only the full refactored file without backticks as code fences.",
}

// Completion is the instruction used by inline completion requests.
const Completion = "Generate a complete Vue.js component that builds upon my code snippet. " +
	"Focus exclusively on writing clean, functional code using Vue 3 composition API with <script setup lang='ts'> syntax. " +
	"Include proper Tailwind CSS styling that resembles shadcn UI aesthetics.\n" +
	"Important requirements:\n\n" +
	"Only output the code that completes my component\n" +
	"Do not repeat code I've already written\n" +
	"Use TypeScript with proper typing\n" +
	"Include well-structured template markup\n" +
	"Write optimized logic with composition API patterns\n" +
	"Do not include code fence markers in your response"

// Registry resolves generation kinds to system messages.
type Registry struct {
	prompts map[Kind]string
}

// NewRegistry returns a registry over the built-in prompts. Overrides replace
// individual kinds; an override for a kind outside the closed set is ignored.
func NewRegistry(overrides map[Kind]string) *Registry {
	r := &Registry{prompts: make(map[Kind]string, len(systemPrompts))}
	for k, v := range systemPrompts {
		r.prompts[k] = v
	}
	for k, v := range overrides {
		if _, ok := systemPrompts[k]; ok && v != "" {
			r.prompts[k] = v
		}
	}
	return r
}

// Lookup returns the system message for kind.
func (r *Registry) Lookup(kind Kind) (llm.Message, error) {
	content, ok := r.prompts[kind]
	if !ok {
		return llm.Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return llm.Message{Role: llm.RoleSystem, Content: content}, nil
}

var defaultRegistry = NewRegistry(nil)

// Lookup resolves kind against the built-in prompts.
func Lookup(kind Kind) (llm.Message, error) {
	return defaultRegistry.Lookup(kind)
}
