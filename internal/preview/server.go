// Package preview serves the virtual filesystem and conversation over HTTP,
// with a websocket feed of live events.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"playground/internal/engine"
	"playground/internal/events"
	"playground/internal/logging"
	"playground/internal/markdown"
)

// Server exposes an orchestrator to a browser.
type Server struct {
	orch     *engine.Orchestrator
	bus      *events.EventBus
	renderer *markdown.Renderer
	logger   *zerolog.Logger

	// sends outlive the request that started them
	baseCtx context.Context
}

// New creates a preview server. bus must be the one the orchestrator
// publishes on; renderer may be nil, in which case messages carry no HTML.
func New(orch *engine.Orchestrator, bus *events.EventBus, renderer *markdown.Renderer, logger *zerolog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		orch:     orch,
		bus:      bus,
		renderer: renderer,
		logger:   logger,
		baseCtx:  context.Background(),
	}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/files/{path...}", s.handleReadFile)
	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/messages", s.handleSendMessage)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Sends started over HTTP are bound to ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("preview server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type fileEntry struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	files := s.orch.Store().Files()
	out := make([]fileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, fileEntry{Path: f.Filepath(), Size: len(f.Content())})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	f, ok := s.orch.Store().Get(path)
	if !ok {
		writeError(w, http.StatusNotFound, "file not found: "+path)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(f.Content()))
}

type messageView struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, _ *http.Request) {
	msgs := s.orch.Messages()
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		view := messageView{ID: m.ID, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
		if s.renderer != nil {
			html, err := s.renderer.Render(m.Content)
			if err != nil {
				s.logger.Warn().Err(err).Str("id", m.ID).Msg("render message")
			} else {
				view.HTML = html
			}
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, out)
}

type sendRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.start(req.Content); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// start kicks off a send and logs its outcome when it settles.
func (s *Server) start(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("content is required")
	}
	done, err := s.orch.StartMessage(s.baseCtx, content, nil)
	if err != nil {
		return err
	}
	go func() {
		if err := <-done; err != nil {
			s.logger.Warn().Err(err).Msg("send failed")
			s.bus.Emit(events.GenerationFinished, events.GenerationPayload{Error: err.Error()})
		}
	}()
	return nil
}

type stateView struct {
	Busy       bool            `json:"busy"`
	State      string          `json:"state"`
	Model      string          `json:"model"`
	Files      int             `json:"files"`
	Generation *generationView `json:"generation,omitempty"`
}

type generationView struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Error   string `json:"error,omitempty"`
	Summary string `json:"summary,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	view := stateView{
		Busy:  s.orch.IsBusy(),
		State: s.orch.State().String(),
		Model: s.orch.Model(),
		Files: s.orch.Store().Len(),
	}
	if gen, ok := s.orch.LastGeneration(); ok {
		gv := &generationView{Kind: string(gen.Argument.Type), Path: gen.Argument.FilePath}
		if gen.Err != nil {
			gv.Error = gen.Err.Error()
		}
		if gen.Change != nil {
			gv.Summary = gen.Change.Summary()
		}
		view.Generation = gv
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
