package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/ctrl-q/ctrlq/internal/ctxlog"
	"github.com/ctrl-q/ctrlq/internal/importparse"
	"github.com/ctrl-q/ctrlq/internal/resolve"
)

// runPhase0 uploads every app row in source order, sleeping between
// uploads to relieve Repository rate-limit pressure, then applies owner and
// stream publication. The app row's tags and custom properties are not
// applied to the uploaded app. App uploads complete
// before any task that references them is submitted (§5 ordering
// guarantee iii), which holds trivially here because Phase 0 runs to
// completion before Phase A starts.
func runPhase0(ctx context.Context, repo Repository, catalog *resolve.Catalog, apps []importparse.AppRecord,
	loadQVF QVFLoader, appResolver *resolve.AppResolver, opt Options) error {

	logger := ctxlog.FromContext(ctx)
	sleep := opt.SleepAppUpload
	if sleep <= 0 {
		sleep = 1000 * time.Millisecond
	}

	for i, app := range apps {
		if opt.DryRun {
			logger.Info("dry-run: would upload app", "app_counter", app.AppCounter, "name", app.AppName)
			appResolver.RecordUpload(app.AppCounter, fmt.Sprintf("dry-run-app-%d", app.AppCounter))
			continue
		}

		qvf, err := loadQVF(app.QVFDirectory, app.QVFName)
		if err != nil {
			return fmt.Errorf("app counter %d: load QVF %q: %w", app.AppCounter, app.QVFName, err)
		}

		guid, err := repo.UploadApp(ctx, qvf, app.AppName, app.ExcludeDataConnections)
		if err != nil {
			return fmt.Errorf("app counter %d: upload: %w", app.AppCounter, err)
		}
		appResolver.RecordUpload(app.AppCounter, guid)

		if app.OwnerUserDirectory != "" || app.OwnerUserID != "" {
			if err := repo.SetAppOwner(ctx, guid, app.OwnerUserDirectory, app.OwnerUserID); err != nil {
				logger.Error("set app owner failed", "app_counter", app.AppCounter, "error", err)
			}
		}

		if app.PublishToStream != "" {
			streamResolver := resolve.NewStreamResolver(catalog)
			streamID, ok, warn := streamResolver.Resolve(app.PublishToStream)
			if !ok {
				logger.Warn("publish-to-stream skipped", "app_counter", app.AppCounter, "reason", warn)
			} else if err := repo.PublishApp(ctx, guid, streamID); err != nil {
				logger.Error("publish app failed", "app_counter", app.AppCounter, "error", err)
			}
		}

		if i < len(apps)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}
	return nil
}
