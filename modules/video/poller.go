package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/metrics"
	"portfolio-studio-server/modules/common/storage"
)

// OperationPoller refreshes a video operation handle.
type OperationPoller interface {
	PollVideoOperation(ctx context.Context, op *gemini.VideoOperation) (*gemini.VideoOperation, error)
}

// StatusFunc receives user-visible progress. An empty string clears the status.
type StatusFunc func(status string)

// Poller drives one video operation from submission to a stored artifact.
// Polls are strictly sequential: each waits for the previous response.
type Poller struct {
	client   OperationPoller
	fetcher  *Fetcher
	blobs    storage.BlobStore
	interval time.Duration
	maxWait  time.Duration
	metrics  *metrics.Metrics

	after func(time.Duration) <-chan time.Time
}

type PollerConfig struct {
	Interval time.Duration
	// MaxWait bounds the whole polling phase; zero means no bound.
	MaxWait time.Duration
	Metrics *metrics.Metrics
}

func NewPoller(client OperationPoller, fetcher *Fetcher, blobs storage.BlobStore, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Poller{
		client:   client,
		fetcher:  fetcher,
		blobs:    blobs,
		interval: cfg.Interval,
		maxWait:  cfg.MaxWait,
		metrics:  cfg.Metrics,
		after:    time.After,
	}
}

// Run polls op until it is done, then downloads and stores the video and
// returns its URL. A done operation without a video is a failure.
func (p *Poller) Run(ctx context.Context, op *gemini.VideoOperation, onStatus StatusFunc) (string, error) {
	if onStatus == nil {
		onStatus = func(string) {}
	}

	onStatus(StatusStarted)

	var deadline <-chan time.Time
	if p.maxWait > 0 {
		timer := time.NewTimer(p.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	polls := 0
	for !op.Done() {
		select {
		case <-ctx.Done():
			return "", gemini.NewGenerationError(gemini.OpPollVideo, ctx.Err())
		case <-deadline:
			return "", gemini.NewGenerationError(gemini.OpVideoResult, fmt.Errorf("%w after %s", gemini.ErrTimedOut, p.maxWait))
		case <-p.after(p.interval):
		}

		onStatus(StatusStillWorking)
		p.metrics.ObserveVideoPoll()
		polls++

		next, err := p.client.PollVideoOperation(ctx, op)
		if err != nil {
			return "", err
		}
		op = next
	}

	log.Printf("🎬 [Video] Operation %s finished after %d poll(s)", op.Name, polls)

	switch status := op.Status.(type) {
	case gemini.Complete:
		onStatus(StatusComplete)
		return p.storeArtifact(ctx, status, onStatus)
	case gemini.Failed:
		return "", gemini.NewGenerationError(gemini.OpVideoResult, errors.New(status.Reason))
	default:
		return "", gemini.NewGenerationError(gemini.OpVideoResult, fmt.Errorf("unexpected operation status %T", op.Status))
	}
}

func (p *Poller) storeArtifact(ctx context.Context, done gemini.Complete, onStatus StatusFunc) (string, error) {
	data, contentType, err := p.fetcher.Fetch(ctx, done.VideoURI, done.MIMEType)
	if err != nil {
		return "", err
	}

	url, err := p.blobs.Save(ctx, data, contentType)
	if err != nil {
		return "", gemini.NewGenerationError(gemini.OpStoreVideo, err)
	}

	onStatus("")
	return url, nil
}
