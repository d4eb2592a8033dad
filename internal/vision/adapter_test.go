package vision

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(name, content string) *domain.Document {
	return &domain.Document{Filename: name, Data: []byte(content), MIMEType: domain.MIMEPNG, Page: 1, PageCount: 1}
}

func textRecognizer(text string) *mocks.MockTextRecognizer {
	return &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			return &domain.OCRResult{Text: text, Words: strings.Fields(text)}, nil
		},
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey([]byte("invoice"))
	b := CacheKey([]byte("invoice"))
	c := CacheKey([]byte("invoice2"))

	assert.True(t, strings.HasPrefix(a, CacheKeyPrefix))
	assert.Len(t, a, len(CacheKeyPrefix)+64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestAdapter_Process(t *testing.T) {
	recognizer := textRecognizer("Invoice #: AB12345")
	entities := &mocks.MockEntityExtractor{
		ExtractEntitiesFn: func(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error) {
			return &domain.Entities{Fields: map[string]string{domain.EntityInvoiceID: "AB12345"}}, nil
		},
	}
	cache := mocks.NewMockExtractionCache()
	a := New(Config{Recognizer: recognizer, Entities: entities, Cache: cache, Retry: fastRetry})

	doc := testDoc("scan.png", "image-bytes")
	rec, err := a.Process(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "Invoice #: AB12345", rec.OCR.Text)
	assert.Equal(t, 1, rec.OCR.NumPages)
	assert.Equal(t, "AB12345", rec.OCR.KeyValuePairs["Invoice #"])
	assert.Equal(t, "AB12345", rec.Entities.Field(domain.EntityInvoiceID))

	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, DefaultCacheTTL, cache.TTL(CacheKey(doc.Data)))
}

func TestAdapter_Process_CacheHit(t *testing.T) {
	recognizer := textRecognizer("Total: $10.00")
	entities := &mocks.MockEntityExtractor{}
	cache := mocks.NewMockExtractionCache()
	a := New(Config{Recognizer: recognizer, Entities: entities, Cache: cache, Retry: fastRetry})

	first, err := a.Process(context.Background(), testDoc("a.png", "same-bytes"))
	require.NoError(t, err)

	second, err := a.Process(context.Background(), testDoc("b.png", "same-bytes"))
	require.NoError(t, err)

	assert.Equal(t, 1, recognizer.Calls())
	assert.Equal(t, 1, entities.Calls())
	assert.Equal(t, first.OCR.Text, second.OCR.Text)
}

func TestAdapter_Process_InvalidCacheEntry(t *testing.T) {
	recognizer := textRecognizer("fresh")
	cache := mocks.NewMockExtractionCache()
	doc := testDoc("a.png", "bytes")
	require.NoError(t, cache.Set(context.Background(), CacheKey(doc.Data), []byte("{not json"), time.Hour))

	rec, err := New(Config{Recognizer: recognizer, Cache: cache, Retry: fastRetry}).Process(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "fresh", rec.OCR.Text)
	assert.Equal(t, 1, recognizer.Calls())
}

func TestAdapter_Process_CacheUnavailable(t *testing.T) {
	cache := mocks.NewMockExtractionCache()
	cache.GetErr = errors.New("connection refused")
	cache.SetErr = errors.New("connection refused")

	rec, err := New(Config{Recognizer: textRecognizer("ok"), Cache: cache, Retry: fastRetry}).
		Process(context.Background(), testDoc("a.png", "bytes"))

	require.NoError(t, err)
	assert.Equal(t, "ok", rec.OCR.Text)
}

func TestAdapter_Process_OCRFailsAfterRetries(t *testing.T) {
	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			return nil, errors.New("service unavailable")
		},
	}
	cache := mocks.NewMockExtractionCache()

	_, err := New(Config{Recognizer: recognizer, Cache: cache, Retry: fastRetry}).
		Process(context.Background(), testDoc("bad.png", "bytes"))

	var extErr *domain.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "bad.png", extErr.Document)
	assert.Equal(t, 3, recognizer.Calls())
	assert.Equal(t, 0, cache.Len())
}

func TestAdapter_Process_EntityFailureDegrades(t *testing.T) {
	entities := &mocks.MockEntityExtractor{
		ExtractEntitiesFn: func(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error) {
			return nil, errors.New("quota exceeded")
		},
	}

	rec, err := New(Config{Recognizer: textRecognizer("text"), Entities: entities, Retry: fastRetry}).
		Process(context.Background(), testDoc("a.png", "bytes"))

	require.NoError(t, err)
	assert.Nil(t, rec.Entities)
	assert.Equal(t, "text", rec.OCR.Text)
	assert.Equal(t, 3, entities.Calls())
}

func TestAdapter_Process_Concurrent(t *testing.T) {
	ocrStarted := make(chan struct{})
	entitiesStarted := make(chan struct{})

	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			close(ocrStarted)
			select {
			case <-entitiesStarted:
				return &domain.OCRResult{Text: "ok"}, nil
			case <-time.After(2 * time.Second):
				return nil, Permanent(errors.New("entity extraction did not run concurrently"))
			}
		},
	}
	entities := &mocks.MockEntityExtractor{
		ExtractEntitiesFn: func(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error) {
			close(entitiesStarted)
			<-ocrStarted
			return nil, nil
		},
	}

	_, err := New(Config{Recognizer: recognizer, Entities: entities, Retry: fastRetry}).
		Process(context.Background(), testDoc("a.png", "bytes"))
	assert.NoError(t, err)
}

func TestAdapter_Process_PreprocessFallback(t *testing.T) {
	var gotMIME atomic.Value
	var gotLen atomic.Int64
	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			gotMIME.Store(mimeType)
			gotLen.Store(int64(len(image)))
			return &domain.OCRResult{}, nil
		},
	}

	doc := &domain.Document{Filename: "a.jpg", Data: []byte("not decodable"), MIMEType: domain.MIMEJPEG}
	_, err := New(Config{Recognizer: recognizer, Preprocess: true, Retry: fastRetry}).Process(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, domain.MIMEJPEG, gotMIME.Load())
	assert.Equal(t, int64(len(doc.Data)), gotLen.Load())
}

func TestAdapter_Process_Preprocesses(t *testing.T) {
	var gotMIME atomic.Value
	recognizer := &mocks.MockTextRecognizer{
		RecognizeFn: func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
			gotMIME.Store(mimeType)
			return &domain.OCRResult{}, nil
		},
	}

	doc := &domain.Document{Filename: "a.png", Data: testImage(t), MIMEType: domain.MIMEJPEG}
	_, err := New(Config{Recognizer: recognizer, Preprocess: true, Retry: fastRetry}).Process(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, domain.MIMEPNG, gotMIME.Load())
}

func TestAdapter_FlushCache(t *testing.T) {
	cache := mocks.NewMockExtractionCache()
	a := New(Config{Recognizer: textRecognizer("x"), Cache: cache, Retry: fastRetry})

	_, err := a.Process(context.Background(), testDoc("a.png", "bytes"))
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	require.NoError(t, a.FlushCache(context.Background()))
	assert.Equal(t, 0, cache.Len())
}
