package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const jobType = "email"

// job is the envelope shared with the mail worker.
type job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return rdb, nil
}

// Queue pushes requests onto a Redis list consumed by the mail worker with BRPOP.
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

func (q *Queue) Notify(ctx context.Context, req Request) error {
	data, err := EncodeJob(req)
	if err != nil {
		return err
	}

	return q.rdb.LPush(ctx, q.key, data).Err()
}

// Pop blocks up to timeout for the next request. It returns nil, nil on timeout.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Request, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("popping notification: %w", err)
	}

	req, err := DecodeJob([]byte(res[1]))
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func EncodeJob(req Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding notification: %w", err)
	}

	return json.Marshal(job{Type: jobType, Payload: payload})
}

func DecodeJob(data []byte) (Request, error) {
	var j job
	if err := json.Unmarshal(data, &j); err != nil {
		return Request{}, fmt.Errorf("decoding job: %w", err)
	}

	if j.Type != jobType {
		return Request{}, fmt.Errorf("unexpected job type %q", j.Type)
	}

	var req Request
	if err := json.Unmarshal(j.Payload, &req); err != nil {
		return Request{}, fmt.Errorf("decoding notification: %w", err)
	}

	return req, nil
}

// Ping reports whether the queue's Redis server is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
