package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xhsclient/pkg/logger"
	"xhsclient/pkg/ratelimit"
	"xhsclient/pkg/xhs"
)

type mockFetcher struct {
	delay  time.Duration
	err    error
	calls  atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func (m *mockFetcher) NoteComments(ctx context.Context, noteID, xsecToken string, num int, _ ...xhs.CollectOption) ([]xhs.Comment, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([]xhs.Comment, num)
	for i := range out {
		out[i] = xhs.Comment{ID: fmt.Sprintf("%s-c%d", noteID, i), UserNickname: xhs.AnonymousNickname}
	}
	return out, nil
}

type memSink struct {
	mu    sync.Mutex
	saved map[string]int
	err   error
}

func newMemSink(done ...string) *memSink {
	s := &memSink{saved: make(map[string]int)}
	for _, id := range done {
		s.saved[id] = 0
	}
	return s
}

func (s *memSink) Done(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[noteID]
	return ok
}

func (s *memSink) Save(noteID string, comments []xhs.Comment) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[noteID] = len(comments)
	return nil
}

func jobs(n, num int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{NoteID: fmt.Sprintf("note%d", i), XsecToken: "tok", Num: num}
	}
	return out
}

func TestPoolProcessesAllJobs(t *testing.T) {
	fetcher := &mockFetcher{delay: 5 * time.Millisecond}
	sink := newMemSink()

	results := Run(context.Background(), 3, fetcher, sink, ratelimit.NewTokenBucket(100, time.Second), logger.NewTestLogger(), jobs(10, 4))

	require.Len(t, results, 10)
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.False(t, r.Skipped)
		assert.Len(t, r.Comments, 4)
	}
	assert.Equal(t, int32(10), fetcher.calls.Load())
	assert.Len(t, sink.saved, 10)
	assert.Equal(t, 4, sink.saved["note7"])
}

func TestPoolRunsWorkersConcurrently(t *testing.T) {
	fetcher := &mockFetcher{delay: 50 * time.Millisecond}

	results := Run(context.Background(), 5, fetcher, nil, nil, nil, jobs(10, 1))

	require.Len(t, results, 10)
	assert.Greater(t, fetcher.peak.Load(), int32(1))
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(5))
}

func TestPoolReportsErrors(t *testing.T) {
	fetcher := &mockFetcher{err: fmt.Errorf("session expired")}
	sink := newMemSink()

	results := Run(context.Background(), 2, fetcher, sink, nil, logger.NewTestLogger(), jobs(5, 3))

	require.Len(t, results, 5)
	for _, r := range results {
		require.Error(t, r.Error)
		assert.Contains(t, r.Error.Error(), "fetch failed")
	}
	assert.Empty(t, sink.saved)
}

func TestPoolSkipsDoneNotes(t *testing.T) {
	fetcher := &mockFetcher{}
	sink := newMemSink("note1", "note3")

	results := Run(context.Background(), 2, fetcher, sink, nil, nil, jobs(4, 2))

	require.Len(t, results, 4)
	skipped := 0
	for _, r := range results {
		if r.Skipped {
			skipped++
			assert.Contains(t, []string{"note1", "note3"}, r.Job.NoteID)
		}
	}
	assert.Equal(t, 2, skipped)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestPoolSaveFailure(t *testing.T) {
	sink := newMemSink()
	sink.err = fmt.Errorf("disk full")

	results := Run(context.Background(), 1, &mockFetcher{}, sink, nil, nil, jobs(1, 1))

	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Error, "save failed")
}

func TestSubmitValidation(t *testing.T) {
	pool := NewPool(context.Background(), 1, &mockFetcher{}, nil, nil, nil)
	pool.Start()
	defer pool.Stop()

	assert.Error(t, pool.Submit(Job{}))
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(ctx, 1, &mockFetcher{}, nil, nil, nil)
	pool.Start()
	submitErr := pool.Submit(Job{NoteID: "n"})
	if submitErr != nil {
		assert.ErrorIs(t, submitErr, context.Canceled)
	}

	var results []Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()
	pool.Stop()
	<-done

	if submitErr == nil {
		require.Len(t, results, 1, "a queued job is reported even when never started")
		assert.ErrorIs(t, results[0].Error, context.Canceled)
	} else {
		assert.Empty(t, results)
	}
}

func TestRunReportsEveryJobAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &mockFetcher{delay: 20 * time.Millisecond}
	time.AfterFunc(30*time.Millisecond, cancel)

	results := Run(ctx, 1, fetcher, nil, nil, nil, jobs(6, 1))

	require.Len(t, results, 6)
	seen := make(map[string]bool)
	cancelled := 0
	for _, r := range results {
		seen[r.Job.NoteID] = true
		if r.Error != nil {
			assert.ErrorIs(t, r.Error, context.Canceled)
			cancelled++
		}
	}
	assert.Len(t, seen, 6)
	assert.Greater(t, cancelled, 0)
}

func TestDirSink(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	require.NoError(t, err)

	assert.False(t, sink.Done("n1"))
	require.NoError(t, sink.Save("n1", []xhs.Comment{{ID: "c1", Content: "好"}}))
	assert.True(t, sink.Done("n1"))

	data, err := os.ReadFile(sink.Path("n1"))
	require.NoError(t, err)
	var out struct {
		NoteID   string        `json:"note_id"`
		Count    int           `json:"count"`
		Comments []xhs.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "n1", out.NoteID)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "好", out.Comments[0].Content)

	assert.NotContains(t, sink.Path("../evil"), "..")
}

func TestDirSinkIndexesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_comments.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(""), 0644))

	sink, err := NewDirSink(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.Count())
	assert.True(t, sink.Done("old"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late_comments.json"), []byte("{}"), 0644))
	assert.True(t, sink.Done("late"), "files written after the scan are found")
	assert.Equal(t, 2, sink.Count())
}
