package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relionflow/api/internal/model"
)

const (
	activeKey       = "jobs:active"
	maxWatchRetries = 16
)

func jobKey(id string) string              { return fmt.Sprintf("job:%s", id) }
func projectJobsKey(project string) string { return fmt.Sprintf("project:%s:jobs", project) }
func counterKey(project string) string     { return fmt.Sprintf("project:%s:counter", project) }

// Redis stores records as JSON under job:<id>. Updates use optimistic
// WATCH transactions. A zero ttl keeps records forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Create(ctx context.Context, job *model.JobRecord) error {
	data, err := encode(job)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateJob, job.ID)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, projectJobsKey(job.ProjectID), job.ID)
		if !job.Status.IsTerminal() {
			pipe.SAdd(ctx, activeKey, job.ID)
		}
		return nil
	})
	return err
}

func (s *Redis) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
		}
		return nil, err
	}
	return decode(data)
}

func (s *Redis) Update(ctx context.Context, id string, fn func(*model.JobRecord) error) (*model.JobRecord, error) {
	key := jobKey(id)
	var updated *model.JobRecord
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", model.ErrJobNotFound, id)
			}
			return err
		}
		job, err := decode(data)
		if err != nil {
			return err
		}
		if err := fn(job); err != nil {
			return err
		}
		if data, err = encode(job); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			if job.Status.IsTerminal() {
				pipe.SRem(ctx, activeKey, id)
			}
			return nil
		})
		if err == nil {
			updated = job
		}
		return err
	}
	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update job %s: too many concurrent writers", id)
}

func (s *Redis) ListByProject(ctx context.Context, projectID string) ([]*model.JobRecord, error) {
	ids, err := s.client.SMembers(ctx, projectJobsKey(projectID)).Result()
	if err != nil {
		return nil, err
	}
	jobs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortByName(jobs)
	return jobs, nil
}

func (s *Redis) ListActive(ctx context.Context) ([]*model.JobRecord, error) {
	ids, err := s.client.SMembers(ctx, activeKey).Result()
	if err != nil {
		return nil, err
	}
	jobs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := jobs[:0]
	for _, j := range jobs {
		if !j.Status.IsTerminal() {
			out = append(out, j)
		}
	}
	sortByName(out)
	return out, nil
}

// load fetches records by id, skipping ones that expired.
func (s *Redis) load(ctx context.Context, ids []string) ([]*model.JobRecord, error) {
	if len(ids) == 0 {
		return []*model.JobRecord{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.JobRecord, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		job, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (s *Redis) NextJobNumber(ctx context.Context, projectID string) (int, error) {
	n, err := s.client.Incr(ctx, counterKey(projectID)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
