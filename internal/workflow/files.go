package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/storage"
)

// TaskKindFileDelete is the queue task kind for deferred CV removal.
const TaskKindFileDelete = "file.delete"

// FileDeleteTask names one stored object to remove.
type FileDeleteTask struct {
	Path string `json:"path"`
}

// FileJanitor is the queue handler that removes stored files after the
// record change referencing them has committed.
type FileJanitor struct {
	files  storage.FileStore
	logger logger.Logger
}

func NewFileJanitor(files storage.FileStore, log logger.Logger) *FileJanitor {
	return &FileJanitor{
		files:  files,
		logger: log.WithFields(map[string]interface{}{"component": "file-janitor"}),
	}
}

// HandleFileDeleteTask removes one object. Deletion is idempotent upstream,
// so a retried task that already succeeded is harmless.
func (j *FileJanitor) HandleFileDeleteTask(ctx context.Context, payload json.RawMessage) error {
	var task FileDeleteTask
	if err := json.Unmarshal(payload, &task); err != nil {
		j.logger.Error("malformed file delete task", map[string]interface{}{"error": err})
		return nil
	}
	if task.Path == "" {
		return nil
	}

	if err := j.files.Delete(ctx, task.Path); err != nil {
		return fmt.Errorf("delete stored file %s: %w", task.Path, err)
	}

	j.logger.Debug("stored file removed", map[string]interface{}{"path": task.Path})
	return nil
}
