// Package store persists JobRecords and allocates per-project job
// numbers.
package store

import (
	"context"
	"encoding/json"

	"github.com/relionflow/api/internal/model"
)

// Store is the job persistence contract. Update applies fn to the current
// record atomically: concurrent updates of one job are serialised and a
// failing fn leaves the record untouched.
type Store interface {
	Create(ctx context.Context, job *model.JobRecord) error
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	Update(ctx context.Context, id string, fn func(*model.JobRecord) error) (*model.JobRecord, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.JobRecord, error)
	// ListActive returns every record that is not yet terminal.
	ListActive(ctx context.Context) ([]*model.JobRecord, error)
	NextJobNumber(ctx context.Context, projectID string) (int, error)
}

func encode(job *model.JobRecord) ([]byte, error) {
	return json.Marshal(job)
}

func decode(data []byte) (*model.JobRecord, error) {
	var job model.JobRecord
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
