package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/orbit-run/orbit/pkg/api"
)

// RedisRunStore is a RunStore backed by Redis. It uses a simple key
// structure:
//
//	<prefix>run:<id>              => JSON-encoded run record
//	<prefix>idx:all               => SET of all run IDs
//	<prefix>idx:wf:<workflow>     => SET of run IDs for a given workflow
//	<prefix>idx:status:<status>   => SET of run IDs for a given status
//
// The indexes are always updated on Save/Update, and ListRuns uses set
// operations for filtering.
type RedisRunStore struct {
	client *redis.Client
	prefix string
}

var _ RunStore = (*RedisRunStore)(nil)

// NewRedisRunStore creates a RedisRunStore.
// prefix is optional but recommended (e.g. "orbit:").
func NewRedisRunStore(client *redis.Client, prefix string) *RedisRunStore {
	if prefix == "" {
		prefix = "orbit:"
	}
	return &RedisRunStore{client: client, prefix: prefix}
}

func (s *RedisRunStore) keyRun(id string) string { return s.prefix + "run:" + id }

func (s *RedisRunStore) keyAll() string { return s.prefix + "idx:all" }

func (s *RedisRunStore) keyWorkflow(name string) string { return s.prefix + "idx:wf:" + name }

func (s *RedisRunStore) keyStatus(status api.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func (s *RedisRunStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), run.ID)
	pipe.SAdd(ctx, s.keyWorkflow(run.WorkflowName), run.ID)
	pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRunStore) UpdateRun(ctx context.Context, run *api.Run) error {
	// Read the previous record first so the status index can be moved.
	prevData, err := s.client.Get(ctx, s.keyRun(run.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return api.ErrRunNotFound
	}
	if err != nil {
		return err
	}
	prev, err := DecodeRun(prevData)
	if err != nil {
		return err
	}

	data, err := EncodeRun(run)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, 0)
	if prev.Status != run.Status {
		pipe.SRem(ctx, s.keyStatus(prev.Status), run.ID)
		pipe.SAdd(ctx, s.keyStatus(run.Status), run.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisRunStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, api.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRun(data)
}

func (s *RedisRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	keys := []string{s.keyAll()}
	if filter.WorkflowName != "" {
		keys = append(keys, s.keyWorkflow(filter.WorkflowName))
	}
	if filter.Status != "" {
		keys = append(keys, s.keyStatus(filter.Status))
	}

	var ids []string
	var err error
	if len(keys) == 1 {
		ids, err = s.client.SMembers(ctx, keys[0]).Result()
	} else {
		ids, err = s.client.SInter(ctx, keys...).Result()
	}
	if err != nil {
		return nil, err
	}

	runs := make([]*api.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if errors.Is(err, api.ErrRunNotFound) {
			// Index entry outlived the record; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
