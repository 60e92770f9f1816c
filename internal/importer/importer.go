// Package importer implements the two-phase import algorithm: Phase 0
// uploads optional QVFs, Phase A creates tasks and their schedule triggers,
// and Phase B creates composite triggers whose rules may point at
// Phase-A-created tasks or pre-existing ones.
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/importparse"
	"github.com/ctrl-q/ctrlq/internal/qrs"
	"github.com/ctrl-q/ctrlq/internal/resolve"
	"github.com/ctrl-q/ctrlq/internal/taskgraph"
)

// UpdateMode mirrors the --update-mode flag. Only Create is legal; Update is
// a declared non-goal and must fail fast.
type UpdateMode string

const (
	ModeCreate UpdateMode = "create"
	ModeUpdate UpdateMode = "update"
)

// Options configures a single import run.
type Options struct {
	UpdateMode       UpdateMode
	DryRun           bool
	SleepAppUpload   time.Duration // default 1000ms, applied between app uploads
	Workers          int           // bounded worker pool size within a phase; default 1 (serialized)
}

// Repository is the subset of the C2 client the importer needs. Defined
// here (not in qrs) so the importer can be tested against a fake.
type Repository interface {
	CreateReloadTask(ctx context.Context, spec qrs.ReloadTaskSpec) (string, error)
	CreateExternalProgramTask(ctx context.Context, spec qrs.ExternalProgramTaskSpec) (string, error)
	CreateCompositeEvent(ctx context.Context, spec qrs.CompositeEventSpec) (string, error)
	UploadApp(ctx context.Context, qvf []byte, name string, excludeData bool) (string, error)
	PublishApp(ctx context.Context, appID, streamID string) error
	SetAppOwner(ctx context.Context, appID, userDirectory, userID string) error
}

// QVFLoader loads the bytes for an app row; production code reads a file,
// tests substitute an in-memory fake.
type QVFLoader func(directory, name string) ([]byte, error)

// TaskResult records the outcome of one Phase A work item.
type TaskResult struct {
	TaskCounter int
	LocalID     string // source "Task id" value
	GUID        string
	Err         error
}

// EventResult records the outcome of one Phase B work item.
type EventResult struct {
	TaskCounter  int
	EventCounter int
	GUID         string
	Err          error
}

// Run executes Phase 0, Phase A, and Phase B in strict sequence and returns
// per-item results. A partial Phase A does not roll back previously created
// tasks; Phase B runs only over the tasks that succeeded.
func Run(ctx context.Context, repo Repository, graph *taskgraph.Graph, catalog *resolve.Catalog,
	tasks []importparse.TaskRecord, apps []importparse.AppRecord, loadQVF QVFLoader, opt Options) (
	taskResults []TaskResult, eventResults []EventResult, err error) {

	logger := ctxlog.FromContext(ctx)

	if opt.UpdateMode == ModeUpdate {
		return nil, nil, fmt.Errorf("%w: update-mode=update is a non-goal; only create is supported", ErrUnsupportedUpdateMode)
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}

	appResolver := resolve.NewAppResolver(catalog, catalog.KnownAppIDs)
	if err := runPhase0(ctx, repo, catalog, apps, loadQVF, appResolver, opt); err != nil {
		return nil, nil, fmt.Errorf("phase 0 (app upload) failed: %w", err)
	}
	logger.Info("phase 0 complete", "apps_uploaded", len(apps))

	localTaskIDs := make(map[string]bool, len(tasks))
	for _, tr := range tasks {
		if tr.TaskID != "" {
			localTaskIDs[tr.TaskID] = true
		}
	}

	localToGUID := newLocalToGUID()
	taskResults = runPhaseA(ctx, repo, graph, catalog, appResolver, tasks, localToGUID, opt)

	for _, r := range taskResults {
		if r.Err != nil {
			logger.Error("phase A task creation failed", "task_counter", r.TaskCounter, "error", r.Err)
		}
	}

	eventResults = runPhaseB(ctx, repo, graph, catalog, tasks, localToGUID, opt)
	for _, r := range eventResults {
		if r.Err != nil {
			logger.Error("phase B composite event creation failed", "task_counter", r.TaskCounter, "event_counter", r.EventCounter, "error", r.Err)
		}
	}

	graph.Rebuild(ctx)
	return taskResults, eventResults, nil
}

// localToGUIDTable maps a source-row "Task id" (local counter) to the new
// task's server-assigned GUID, populated in commit order within Phase A.
type localToGUIDTable struct {
	mu sync.RWMutex
	m  map[string]string
}

func newLocalToGUID() *localToGUIDTable { return &localToGUIDTable{m: make(map[string]string)} }

func (t *localToGUIDTable) set(localID, guid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[localID] = guid
}

func (t *localToGUIDTable) get(localID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	g, ok := t.m[localID]
	return g, ok
}
