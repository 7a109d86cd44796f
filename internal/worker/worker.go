package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/streamvault/archiver/internal/backup"
	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/index"
	"github.com/streamvault/archiver/internal/task"
)

// Worker hosts the asynq handlers for every long-running job. Each handler
// follows the same shape: skip when a run of the same task is already in
// flight, register a fresh record and mark it started, derive a stop-watching
// context, run the job and write the terminal status back.
type Worker struct {
	manager  *task.Manager
	hub      task.Broadcaster
	store    *client.Store
	cfg      *config.Config
	comments *index.Comments
}

func NewWorker(manager *task.Manager, hub task.Broadcaster, store *client.Store, cfg *config.Config, comments *index.Comments) *Worker {
	return &Worker{
		manager:  manager,
		hub:      hub,
		store:    store,
		cfg:      cfg,
		comments: comments,
	}
}

// Mux returns the handler mux with every task type registered.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(task.TypeRunBackup, w.HandleRunBackup)
	mux.HandleFunc(task.TypeRestoreBackup, w.HandleRestoreBackup)
	mux.HandleFunc(task.TypeIndexComments, w.HandleIndexComments)
	mux.HandleFunc(task.TypeReindexComments, w.HandleReindexComments)
	return mux
}

// BackupPayload carries the reason tag of a backup run.
type BackupPayload struct {
	Reason string `json:"reason"`
}

// RestorePayload names the archive to restore.
type RestorePayload struct {
	Filename string `json:"filename"`
}

// CommentsPayload carries the video batch for comment jobs.
type CommentsPayload struct {
	VideoIDs []string `json:"video_ids"`
}

// HandleRunBackup dumps all indexes into a zip archive.
func (w *Worker) HandleRunBackup(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)

	var payload BackupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal backup payload: %w", err)
		}
	}
	if payload.Reason == "" {
		payload.Reason = "auto"
	}

	return w.run(ctx, taskID, task.TypeRunBackup, func(runCtx context.Context, notifier *task.Notifier) (any, error) {
		engine := backup.NewEngine(w.store, w.cfg, notifier)
		if err := engine.BackupAllIndexes(runCtx, payload.Reason); err != nil {
			return nil, err
		}
		return "backup finished", nil
	})
}

// HandleRestoreBackup replays a zip archive into the store.
func (w *Worker) HandleRestoreBackup(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)

	var payload RestorePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal restore payload: %w", err)
	}
	if payload.Filename == "" {
		return fmt.Errorf("restore task without filename")
	}

	return w.run(ctx, taskID, task.TypeRestoreBackup, func(runCtx context.Context, notifier *task.Notifier) (any, error) {
		engine := backup.NewEngine(w.store, w.cfg, notifier)
		if err := engine.Restore(runCtx, payload.Filename); err != nil {
			return nil, err
		}
		return "restore finished", nil
	})
}

// HandleIndexComments fetches and indexes comments for a batch of videos.
func (w *Worker) HandleIndexComments(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)

	var payload CommentsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal comments payload: %w", err)
	}

	return w.run(ctx, taskID, task.TypeIndexComments, func(runCtx context.Context, notifier *task.Notifier) (any, error) {
		list := index.NewCommentList(w.comments, notifier)
		if err := list.Index(runCtx, payload.VideoIDs); err != nil {
			return nil, err
		}
		return fmt.Sprintf("indexed comments for %d videos", len(payload.VideoIDs)), nil
	})
}

// HandleReindexComments refreshes already indexed comment threads.
func (w *Worker) HandleReindexComments(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)

	var payload CommentsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal comments payload: %w", err)
	}

	return w.run(ctx, taskID, task.TypeReindexComments, func(runCtx context.Context, notifier *task.Notifier) (any, error) {
		total := len(payload.VideoIDs)
		for idx, youtubeID := range payload.VideoIDs {
			select {
			case <-runCtx.Done():
				return nil, runCtx.Err()
			default:
			}

			notifier.SendProgress(runCtx,
				[]string{fmt.Sprintf("Reindex comments %d/%d", idx+1, total)},
				float64(idx+1)/float64(total),
			)

			if err := w.comments.Reindex(runCtx, youtubeID); err != nil {
				log.Printf("%s: failed to reindex comments: %v", youtubeID, err)
			}
		}
		return fmt.Sprintf("reindexed comments for %d videos", total), nil
	})
}

// run wraps one job with the shared lifecycle bookkeeping.
func (w *Worker) run(ctx context.Context, taskID, name string, job func(context.Context, *task.Notifier) (any, error)) error {
	pending, err := w.manager.IsPending(ctx, name)
	if err != nil {
		return err
	}
	if pending {
		log.Printf("%s: task %s already pending, skipping", taskID, name)
		return nil
	}

	if err := w.manager.Init(ctx, name, taskID); err != nil {
		return err
	}
	if err := w.manager.Start(ctx, taskID); err != nil {
		return err
	}
	log.Printf("%s: starting task %s", taskID, name)

	runCtx, cancel := w.manager.WatchStop(ctx, taskID)
	defer cancel()

	// terminal status writes must outlive the handler context, a hard kill
	// cancels ctx while the record still needs its FAILED entry
	doneCtx := context.WithoutCancel(ctx)

	notifier := w.manager.Notifier(taskID, name, w.hub)
	result, err := job(runCtx, notifier)
	if err != nil {
		log.Printf("%s: task %s failed: %v", taskID, name, err)
		if failErr := w.manager.Fail(doneCtx, taskID, err.Error()); failErr != nil {
			log.Printf("%s: failed to record task failure: %v", taskID, failErr)
		}
		return err
	}

	log.Printf("%s: task %s completed", taskID, name)
	return w.manager.Complete(doneCtx, taskID, result)
}
