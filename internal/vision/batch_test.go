package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSize(t *testing.T) {
	tests := []struct {
		total, configured, workers, want int
	}{
		{0, 5, 2, 1},
		{1, 5, 2, 1},
		{4, 5, 2, 2},
		{10, 5, 2, 5},
		{100, 5, 2, 5},
		{7, 5, 0, 5},
		{3, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d/%d", tt.total, tt.configured, tt.workers), func(t *testing.T) {
			assert.Equal(t, tt.want, BatchSize(tt.total, tt.configured, tt.workers))
		})
	}
}

func docs(n int) []*domain.Document {
	out := make([]*domain.Document, n)
	for i := range out {
		out[i] = testDoc(fmt.Sprintf("doc%d.png", i), fmt.Sprintf("content-%d", i))
	}
	return out
}

func TestProcessAll(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			if string(image) == "content-3" {
				return nil, errors.New("unreadable")
			}
			return &domain.OCRResult{Text: string(image)}, nil
		},
	}
	a := New(Config{Recognizer: recognizer, Workers: 2, BatchSize: 5, Retry: RetryPolicy{Attempts: 1}})

	var (
		mu       sync.Mutex
		progress []int
	)
	input := docs(7)
	results, err := a.ProcessAll(context.Background(), input, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 7, total)
		progress = append(progress, done)
	})

	require.NoError(t, err)
	require.Len(t, results, 7)
	for i, r := range results {
		assert.Same(t, input[i], r.Document)
		if i == 3 {
			var extErr *domain.ExtractionError
			assert.True(t, errors.As(r.Err, &extErr))
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("content-%d", i), r.Recognition.OCR.Text)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, progress)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestProcessAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			cancel()
			return &domain.OCRResult{}, nil
		},
	}
	a := New(Config{Recognizer: recognizer, Workers: 1, BatchSize: 1, Retry: fastRetry})

	_, err := a.ProcessAll(ctx, docs(4), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, recognizer.Calls(), 4)
}

func TestProcessAll_Empty(t *testing.T) {
	results, err := New(Config{Recognizer: &mocks.MockTextRecognizer{}}).ProcessAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
