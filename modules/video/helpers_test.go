package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/storage"
)

const testAPIKey = "test-key"

type pollStep struct {
	status gemini.OperationStatus
	err    error
}

// fakeGenerator scripts the remote operation: GenerateVideo returns a pending
// handle, each poll consumes the next step (the last one repeats).
type fakeGenerator struct {
	mu       sync.Mutex
	startErr error
	steps    []pollStep
	polls    int
	names    []string

	inFlight    int32
	maxInFlight int32
}

func (f *fakeGenerator) GenerateVideo(_ context.Context, _ string, _ gemini.UploadedImage, _ gemini.AspectRatio) (*gemini.VideoOperation, error) {
	if f.startErr != nil {
		return nil, gemini.NewGenerationError(gemini.OpStartVideo, f.startErr)
	}
	return &gemini.VideoOperation{Name: "operations/video123", Status: gemini.Pending{}}, nil
}

func (f *fakeGenerator) PollVideoOperation(_ context.Context, op *gemini.VideoOperation) (*gemini.VideoOperation, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if current <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, current) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	f.names = append(f.names, op.Name)

	if len(f.steps) == 0 {
		return nil, errors.New("no scripted poll response")
	}
	step := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	if step.err != nil {
		return nil, gemini.NewGenerationError(gemini.OpPollVideo, step.err)
	}
	return &gemini.VideoOperation{Name: op.Name, Status: step.status}, nil
}

func (f *fakeGenerator) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// pendingThen - n pending responses followed by final
func pendingThen(n int, final gemini.OperationStatus) []pollStep {
	steps := make([]pollStep, 0, n+1)
	for i := 0; i < n; i++ {
		steps = append(steps, pollStep{status: gemini.Pending{}})
	}
	return append(steps, pollStep{status: final})
}

// videoServer serves fake video bytes and records the key it was called with.
type videoServer struct {
	*httptest.Server
	status int

	mu   sync.Mutex
	keys []string
	alts []string
}

func newVideoServer(t *testing.T, status int) *videoServer {
	vs := &videoServer{status: status}
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vs.mu.Lock()
		vs.keys = append(vs.keys, r.URL.Query().Get("key"))
		vs.alts = append(vs.alts, r.URL.Query().Get("alt"))
		vs.mu.Unlock()

		if vs.status != http.StatusOK {
			w.WriteHeader(vs.status)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4-bytes"))
	}))
	t.Cleanup(vs.Close)
	return vs
}

func (vs *videoServer) videoURI() string {
	return vs.URL + "/v1beta/files/video123:download?alt=media"
}

// intervalRecorder replaces time.After so polling runs instantly.
type intervalRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *intervalRecorder) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (r *intervalRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

func newTestPoller(gen OperationPoller, blobs storage.BlobStore, rec *intervalRecorder) *Poller {
	p := NewPoller(gen, NewFetcher(testAPIKey, nil), blobs, PollerConfig{Interval: 10 * time.Second})
	if rec != nil {
		p.after = rec.after
	}
	return p
}

// statusLog collects StatusFunc calls.
type statusLog struct {
	mu       sync.Mutex
	statuses []string
}

func (l *statusLog) record(status string) {
	l.mu.Lock()
	l.statuses = append(l.statuses, status)
	l.mu.Unlock()
}

func (l *statusLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.statuses...)
}

// recordingNotifier collects published events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (n *recordingNotifier) Publish(_ string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ev, ok := payload.(StatusEvent); ok {
		n.events = append(n.events, ev)
	}
}

func (n *recordingNotifier) states() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	states := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		if len(states) == 0 || states[len(states)-1] != ev.State {
			states = append(states, ev.State)
		}
	}
	return states
}

// countingBlobStore wraps a MemoryBlobStore and counts saves.
type countingBlobStore struct {
	*storage.MemoryBlobStore
	saves int32
}

func newCountingBlobStore() *countingBlobStore {
	return &countingBlobStore{MemoryBlobStore: storage.NewMemoryBlobStore("/blobs", 4)}
}

func (c *countingBlobStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	atomic.AddInt32(&c.saves, 1)
	return c.MemoryBlobStore.Save(ctx, data, contentType)
}

func (c *countingBlobStore) count() int {
	return int(atomic.LoadInt32(&c.saves))
}

// failingBlobStore always errors.
type failingBlobStore struct{}

func (failingBlobStore) Save(context.Context, []byte, string) (string, error) {
	return "", errors.New("disk full")
}
