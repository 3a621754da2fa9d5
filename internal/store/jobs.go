package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// JobStatus tracks a batch verification run
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// CreateJob records a new batch job and returns its ID.
func (s *Store) CreateJob(ctx context.Context, message string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, message) VALUES (?, ?, ?)`,
		id, string(JobPending), message)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// UpdateJob advances a job's status and progress.
func (s *Store) UpdateJob(ctx context.Context, id string, status JobStatus, progress float64, message string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = ?, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(status), progress, message, id)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}
