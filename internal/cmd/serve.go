package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/memora"
)

// NewServeCommand creates the HTTP API command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP JSON API",
		Long: `Serve a small HTTP JSON API:

  GET  /api/models   list the configured models
  POST /api/run      run a goal: {"goal": "...", "model": "...", "agent_id": "..."}`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	m, _, err := newMemora(cmd, func(o *memora.Options) {
		o.ConsoleTrace = false
	})
	if err != nil {
		return err
	}
	defer m.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ModelInfo is one entry of GET /api/models.
type ModelInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Stream      bool   `json:"stream"`
	Default     bool   `json:"default"`
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Goal    string `json:"goal"`
	Model   string `json:"model,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
}

// RunResponse is the reply of POST /api/run.
type RunResponse struct {
	AgentID     string `json:"agent_id"`
	State       string `json:"state"`
	Output      string `json:"output"`
	Steps       int    `json:"steps"`
	Resumed     bool   `json:"resumed"`
	Interrupted bool   `json:"interrupted"`
	Error       string `json:"error,omitempty"`
}

// NewHandler returns the API routes served by 'memora serve'.
func NewHandler(m *memora.Memora) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/models", func(w http.ResponseWriter, _ *http.Request) {
		def := m.DefaultModel()
		models := make([]ModelInfo, 0)
		for _, e := range m.Models() {
			info := ModelInfo{ID: e.ID, Description: e.Description, Provider: e.Provider, Model: e.Name, Stream: e.Stream, Default: e.ID == def}
			// the default model goes first
			if info.Default {
				models = append([]ModelInfo{info}, models...)
				continue
			}
			models = append(models, info)
		}
		writeJSON(w, http.StatusOK, models)
	})

	mux.HandleFunc("POST /api/run", func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request: %v", err)})
			return
		}
		if req.Goal == "" && req.AgentID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goal or agent_id is required"})
			return
		}

		res := m.RunWithResult(r.Context(), req.Goal, req.Model, req.AgentID)
		resp := RunResponse{
			AgentID:     res.AgentID,
			State:       string(res.State),
			Output:      res.Output,
			Steps:       res.Steps,
			Resumed:     res.Resumed,
			Interrupted: res.Interrupted,
		}
		status := http.StatusOK
		if res.Err != nil {
			resp.Error = res.Err.Error()
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
