package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/relionflow/api/internal/model"
)

// Memory keeps records in process memory. Records are stored encoded so
// callers never share state with the store.
type Memory struct {
	mu       sync.Mutex
	jobs     map[string][]byte
	projects map[string][]string
	counters map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		jobs:     map[string][]byte{},
		projects: map[string][]string{},
		counters: map[string]int{},
	}
}

func (m *Memory) Create(_ context.Context, job *model.JobRecord) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateJob, job.ID)
	}
	m.jobs[job.ID] = data
	m.projects[job.ProjectID] = append(m.projects[job.ProjectID], job.ID)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *Memory) get(id string) (*model.JobRecord, error) {
	data, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
	}
	return decode(data)
}

func (m *Memory) Update(_ context.Context, id string, fn func(*model.JobRecord) error) (*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	data, err := encode(job)
	if err != nil {
		return nil, err
	}
	m.jobs[id] = data
	return job, nil
}

func (m *Memory) ListByProject(_ context.Context, projectID string) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.JobRecord, 0, len(m.projects[projectID]))
	for _, id := range m.projects[projectID] {
		job, err := m.get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	sortByName(out)
	return out, nil
}

func (m *Memory) ListActive(_ context.Context) ([]*model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.JobRecord
	for id := range m.jobs {
		job, err := m.get(id)
		if err != nil {
			return nil, err
		}
		if !job.Status.IsTerminal() {
			out = append(out, job)
		}
	}
	sortByName(out)
	return out, nil
}

func (m *Memory) NextJobNumber(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[projectID]++
	return m.counters[projectID], nil
}

func sortByName(jobs []*model.JobRecord) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].ProjectID != jobs[j].ProjectID {
			return jobs[i].ProjectID < jobs[j].ProjectID
		}
		return jobs[i].JobName < jobs[j].JobName
	})
}
