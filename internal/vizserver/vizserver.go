// Package vizserver runs an embedded HTTP server that exposes the C7
// tree/table projection of a task graph as JSON, for callers that want to
// look at a run's shape from a browser or a script instead of the CLI's
// screen/file renderers. It never renders anything itself.
package vizserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ctrl-q/ctrlq/internal/analyzer"
	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// Server serves a single graph's tree/table projection over HTTP. It holds
// no state of its own beyond the graph reference: every request re-renders
// from the graph's current contents, so callers may keep serving while a
// long-running import mutates it underneath.
type Server struct {
	ctx        context.Context
	graph      *taskgraph.Graph
	httpServer *http.Server
}

// New builds a Server bound to graph, listening on port. Port <= 0 disables
// the server entirely; Start becomes a no-op.
func New(ctx context.Context, port int, graph *taskgraph.Graph) *Server {
	s := &Server{ctx: ctx, graph: graph}

	if port <= 0 {
		return s
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/tree", s.treeHandler)
	mux.HandleFunc("/api/table", s.tableHandler)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the server in a background goroutine. It returns immediately;
// call Close to shut it down.
func (s *Server) Start() {
	logger := ctxlog.FromContext(s.ctx)
	if s.httpServer == nil {
		logger.Debug("Visualization server not started: disabled")
		return
	}

	go func() {
		logger.Info("Visualization server starting", "address", fmt.Sprintf("http://localhost%s", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Visualization server failed unexpectedly", "error", err)
		}
	}()
}

// Close gracefully shuts the server down, waiting up to 5 seconds for
// in-flight requests to finish.
func (s *Server) Close() error {
	logger := ctxlog.FromContext(s.ctx)
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	logger.Info("Shutting down visualization server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Visualization server shutdown failed", "error", err)
		return err
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// treeHandler serves the causal/scheduled forest described in §4.7.
// Query params: taskId, taskTag, maxDepth (default 100), details
// (comma-separated tree detail names).
func (s *Server) treeHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(s.ctx)
	q := r.URL.Query()

	spec := taskgraph.FilterSpec{
		TaskIDs:  splitCSV(q.Get("taskId")),
		TaskTags: splitCSV(q.Get("taskTag")),
	}

	maxDepth := 100
	if raw := q.Get("maxDepth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "maxDepth must be an integer", http.StatusBadRequest)
			return
		}
		maxDepth = n
	}

	var details []analyzer.TreeDetail
	for _, d := range splitCSV(q.Get("details")) {
		details = append(details, analyzer.TreeDetail(d))
	}

	forest := analyzer.RenderTree(s.graph, spec, maxDepth, details)
	writeJSON(w, logger, forest)
}

// tableHandler serves the flat table projection described in §4.8. Query
// params: taskId, taskTag, blocks (comma-separated table block names;
// defaults to "common").
func (s *Server) tableHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(s.ctx)
	q := r.URL.Query()

	spec := taskgraph.FilterSpec{
		TaskIDs:  splitCSV(q.Get("taskId")),
		TaskTags: splitCSV(q.Get("taskTag")),
	}

	blockNames := splitCSV(q.Get("blocks"))
	if len(blockNames) == 0 {
		blockNames = []string{string(analyzer.BlockCommon)}
	}
	blocks := make([]analyzer.TableBlock, 0, len(blockNames))
	for _, b := range blockNames {
		blocks = append(blocks, analyzer.TableBlock(b))
	}

	rows := analyzer.RenderTable(s.graph, spec, blocks)
	writeJSON(w, logger, rows)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode visualization response", "error", err)
	}
}
