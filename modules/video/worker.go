package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const QueueKey = "video:queue"

// Queue - Redis list based dispatcher
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, key: QueueKey}
}

// Dispatch - LPUSH the job id; the worker pops from the other end
func (q *Queue) Dispatch(ctx context.Context, jobID string) error {
	position, err := q.rdb.LPush(ctx, q.key, jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}
	log.Printf("📥 [Queue] Job %s enqueued (queue length: %d)", jobID, position)
	return nil
}

// Worker consumes the Redis queue and runs each job's polling loop.
type Worker struct {
	rdb     *redis.Client
	service *Service
	key     string
	block   time.Duration
}

func NewWorker(rdb *redis.Client, service *Service) *Worker {
	return &Worker{
		rdb:     rdb,
		service: service,
		key:     QueueKey,
		block:   5 * time.Second,
	}
}

// Run - blocks until ctx is done, then waits for in-flight jobs
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("👀 [Worker] Watching queue: %s", w.key)

	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		log.Println("🛑 [Worker] Stopped")
	}()

	for ctx.Err() == nil {
		result, err := w.rdb.BRPop(ctx, w.block, w.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ [Worker] Redis BRPOP error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// result[0] is the queue key, result[1] the job id
		jobID := result[1]
		log.Printf("🎯 [Worker] Received job: %s", jobID)

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.service.Process(ctx, jobID)
		}()
	}
	return nil
}
