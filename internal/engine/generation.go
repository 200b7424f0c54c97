package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"playground/internal/changes"
	"playground/internal/events"
	"playground/internal/markdown"
	"playground/internal/prompts"
	"playground/internal/vfs"
	"playground/llm"
)

// GenerationMessages builds the isolated message list for a file
// generation. It never includes the chat history.
func GenerationMessages(system llm.Message, arg CodeArgument) []llm.Message {
	msgs := []llm.Message{system}
	if arg.Type == prompts.Edit && arg.Context != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: arg.Context})
	}
	return append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Create or update: `%s`", arg.FilePath),
	})
}

func (o *Orchestrator) generate(ctx context.Context, rawArgs string, onChunk func(string)) error {
	gen := &Generation{RawArguments: rawArgs, Started: time.Now()}
	o.setLast(gen)

	arg, err := ParseCodeArgument(rawArgs)
	if err != nil {
		o.logger.Warn().Str("arguments", rawArgs).Msg("rejected tool call")
		return o.fail(gen, err)
	}
	o.update(gen, func(g *Generation) { g.Argument = arg })
	log := o.logger.With().Str("kind", string(arg.Type)).Str("path", arg.FilePath).Logger()

	system, err := o.registry.Lookup(arg.Type)
	if err != nil {
		return o.fail(gen, err)
	}

	o.setState(StateAwaitingSecondary)
	o.bus.Emit(events.GenerationStarted, events.GenerationPayload{Kind: string(arg.Type), Path: arg.FilePath})
	stream, err := o.llm.Stream(ctx, llm.Request{
		Messages:  GenerationMessages(system, arg),
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return o.fail(gen, fmt.Errorf("generation stream: %w", err))
	}
	defer stream.Close()

	before, existed := "", false
	if prev, ok := o.store.Get(arg.FilePath); ok {
		before, existed = prev.Content(), true
	}

	placeholder, err := o.ensureDir(arg.FilePath)
	if err != nil {
		return o.fail(gen, err)
	}
	o.update(gen, func(g *Generation) { g.Placeholder = placeholder })

	file, err := vfs.NewVirtualFile(arg.FilePath, "", o.sandbox)
	if err != nil {
		return o.fail(gen, err)
	}
	o.store.Set(file.Filepath(), file)
	o.bus.Emit(events.FileCreated, events.FilePayload{Path: file.Filepath()})

	o.setState(StateStreamingFile)
	var output strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			o.update(gen, func(g *Generation) { g.Content = output.String() })
			log.Warn().Int("written", output.Len()).Msg("generation stream broke off; partial file kept")
			return o.fail(gen, fmt.Errorf("generation stream: %w", err))
		}
		if frag.Content == "" {
			continue
		}

		output.WriteString(frag.Content)
		if err := file.Write(output.String()); err != nil {
			o.update(gen, func(g *Generation) { g.Content = output.String() })
			return o.fail(gen, err)
		}
		o.bus.Emit(events.GenerationChunk, events.ChunkPayload{Path: file.Filepath(), Delta: frag.Content})
		if onChunk != nil {
			onChunk(frag.Content)
		}
	}

	final := output.String()
	if o.stripFences {
		if unwrapped, ok := markdown.UnwrapFence(final); ok {
			final = unwrapped
			if err := file.Write(final); err != nil {
				o.update(gen, func(g *Generation) { g.Content = output.String() })
				return o.fail(gen, err)
			}
		}
	}

	change := changes.Compute(arg.FilePath, before, final, existed)
	o.changes.Record(change)

	o.update(gen, func(g *Generation) {
		g.Content = final
		g.Change = &change
		g.Finished = time.Now()
	})

	o.bus.Emit(events.FileWritten, events.FilePayload{Path: file.Filepath(), Length: len(final), Content: final})
	o.bus.Emit(events.GenerationFinished, events.GenerationPayload{
		Kind:     string(arg.Type),
		Path:     arg.FilePath,
		Added:    change.Added,
		Removed:  change.Removed,
		Replaced: existed,
	})
	log.Info().Int("bytes", len(final)).Int("added", change.Added).Int("removed", change.Removed).Msg("generated file")
	return nil
}

// ensureDir stores a placeholder for the directory of path unless some
// stored path already lives under it. It returns the placeholder's path, or
// "" when none was needed.
func (o *Orchestrator) ensureDir(path string) (string, error) {
	dir := vfs.Dir(path)
	if dir == "" || o.store.HasDir(dir) {
		return "", nil
	}
	placeholder, err := vfs.NewVirtualFile(vfs.Placeholder(dir), "", o.sandbox)
	if err != nil {
		return "", err
	}
	if err := placeholder.Write(""); err != nil {
		return "", err
	}
	o.store.Set(placeholder.Filepath(), placeholder)
	o.bus.Emit(events.FileCreated, events.FilePayload{Path: placeholder.Filepath()})
	return placeholder.Filepath(), nil
}

func (o *Orchestrator) setLast(gen *Generation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = gen
}

func (o *Orchestrator) update(gen *Generation, fn func(*Generation)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(gen)
}

func (o *Orchestrator) fail(gen *Generation, err error) error {
	o.update(gen, func(g *Generation) {
		g.Err = err
		g.Finished = time.Now()
	})

	o.bus.Emit(events.GenerationFinished, events.GenerationPayload{
		Kind:  string(gen.Argument.Type),
		Path:  gen.Argument.FilePath,
		Error: err.Error(),
	})
	o.logger.Error().Err(err).Str("path", gen.Argument.FilePath).Msg("generation failed")
	return err
}
