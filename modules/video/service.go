package video

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/metrics"
)

// Generator starts and refreshes video operations.
type Generator interface {
	GenerateVideo(ctx context.Context, prompt string, source gemini.UploadedImage, aspectRatio gemini.AspectRatio) (*gemini.VideoOperation, error)
	OperationPoller
}

// Dispatcher hands a submitted job to whatever runs its polling loop.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}

// Notifier receives every job state change.
type Notifier interface {
	Publish(topic string, payload interface{})
}

var ErrImageRequired = errors.New("please upload an image first")

// RequestError marks input that can never succeed, as opposed to a failed generation.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

type Service struct {
	generator  Generator
	store      Store
	poller     *Poller
	notifier   Notifier
	metrics    *metrics.Metrics
	dispatcher Dispatcher

	baseCtx context.Context
	wg      sync.WaitGroup
}

type Deps struct {
	Generator Generator
	Store     Store
	Poller    *Poller
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// Dispatcher defaults to running the job in a goroutine of this process.
	Dispatcher Dispatcher
	// BaseContext bounds locally dispatched jobs; cancel it to stop them on shutdown.
	BaseContext context.Context
}

func NewService(deps Deps) *Service {
	s := &Service{
		generator:  deps.Generator,
		store:      deps.Store,
		poller:     deps.Poller,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		dispatcher: deps.Dispatcher,
		baseCtx:    deps.BaseContext,
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	if s.dispatcher == nil {
		s.dispatcher = &localDispatcher{service: s}
	}
	return s
}

// Submit - starts the remote operation, records the job and dispatches polling
func (s *Service) Submit(ctx context.Context, req *GenerateVideoRequest) (*Job, error) {
	if req.Image == nil || strings.TrimSpace(req.Image.Base64) == "" {
		return nil, &RequestError{Err: ErrImageRequired}
	}
	aspectRatio, err := gemini.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	now := time.Now().UTC()
	job := &Job{
		JobID:         uuid.New().String(),
		Prompt:        req.Prompt,
		AspectRatio:   string(aspectRatio),
		ImageName:     req.Image.Name,
		State:         StatePending,
		StatusMessage: StatusInitializing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}

	log.Printf("🎬 [Video] Job %s submitted (aspect-ratio: %s, image: %s)", job.JobID, job.AspectRatio, job.ImageName)

	op, err := s.generator.GenerateVideo(ctx, req.Prompt, *req.Image, aspectRatio)
	if err != nil {
		s.metrics.ObserveGeneration("video", err)
		s.fail(ctx, job, err)
		return job, err
	}

	job.OperationName = op.Name
	job.State = StatePolling
	job.StatusMessage = StatusStarted
	if err := s.save(ctx, job); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, job.JobID); err != nil {
		err = fmt.Errorf("failed to dispatch job: %w", err)
		s.fail(ctx, job, err)
		return job, err
	}
	return job, nil
}

// Get - current state of a job
func (s *Service) Get(ctx context.Context, jobID string) (*Job, error) {
	return s.store.Get(ctx, jobID)
}

// Snapshot - latest status event of a job, sent to new websocket subscribers
func (s *Service) Snapshot(ctx context.Context, jobID string) (interface{}, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Event(), nil
}

// Process - runs the polling loop of a stored job to its terminal state
func (s *Service) Process(ctx context.Context, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		log.Printf("❌ [Video] Failed to load job %s: %v", jobID, err)
		return err
	}
	if job.Terminal() {
		log.Printf("⚠️  [Video] Job %s already %s, skipping", jobID, job.State)
		return nil
	}
	if job.OperationName == "" {
		err := errors.New("job has no operation to poll")
		s.fail(ctx, job, err)
		return err
	}

	log.Printf("🔄 [Video] Polling job %s (operation: %s)", job.JobID, job.OperationName)

	finished := s.metrics.VideoJobStarted()
	op := &gemini.VideoOperation{Name: job.OperationName, Status: gemini.Pending{}}

	videoURL, err := s.poller.Run(ctx, op, func(status string) {
		job.StatusMessage = status
		if status == StatusStillWorking {
			job.Polls++
		}
		if err := s.save(ctx, job); err != nil {
			log.Printf("⚠️  [Video] Failed to persist status of job %s: %v", job.JobID, err)
		}
	})
	finished(err)
	s.metrics.ObserveGeneration("video", err)

	if err != nil {
		s.fail(ctx, job, err)
		return err
	}

	job.State = StateCompleted
	job.VideoURL = videoURL
	job.StatusMessage = ""
	if err := s.save(context.WithoutCancel(ctx), job); err != nil {
		log.Printf("❌ [Video] Failed to save completed job %s: %v", job.JobID, err)
		return err
	}

	log.Printf("✅ [Video] Job %s completed: %s", job.JobID, videoURL)
	return nil
}

// Wait - blocks until locally dispatched jobs have returned
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) fail(ctx context.Context, job *Job, cause error) {
	job.State = StateFailed
	job.ErrorMessage = cause.Error()
	job.StatusMessage = "Error: " + cause.Error()

	log.Printf("❌ [Video] Job %s failed: %v", job.JobID, cause)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.save(saveCtx, job); err != nil {
		log.Printf("❌ [Video] Failed to save failed job %s: %v", job.JobID, err)
	}
}

func (s *Service) save(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, job); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Publish(job.JobID, job.Event())
	}
	return nil
}

type localDispatcher struct {
	service *Service
}

func (d *localDispatcher) Dispatch(_ context.Context, jobID string) error {
	s := d.service
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Process(s.baseCtx, jobID)
	}()
	return nil
}
