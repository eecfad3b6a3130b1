package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cancoktug/ginovainno-replit-sub001/mocks"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

type countingDecoder struct {
	Decoder
	calls *atomic.Int32
}

func (c countingDecoder) DecodeConfig(r io.Reader) (image.Config, error) {
	c.calls.Add(1)
	return c.Decoder.DecodeConfig(r)
}

func (c countingDecoder) Decode(r io.Reader) (image.Image, error) {
	c.calls.Add(1)
	return c.Decoder.Decode(r)
}

var testLimits = Limits{MaxBytes: 10 << 20, AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"}}

func newTestService(t *testing.T, store storage.Store, opts ...Option) *Service {
	t.Helper()
	resolver, err := NewResolver("https://cdn.example.com/media")
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	svc, err := NewService(store, NewNormalizer(nil, NormalizeOptions{}), resolver, ServiceOptions{
		Limits:     testLimits,
		Categories: []string{"team", "blog", "events"},
		Workers:    4,
	}, opts...)
	require.NoError(t, err)
	return svc
}

func TestProcessLargeJPEG(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	svc := newTestService(t, store)

	res, err := svc.Process(context.Background(), Request{
		Data:          jpegBytes(t, 2000, 2000),
		DeclaredType:  "image/jpeg",
		Category:      "team",
		SuggestedName: "headshot.jpeg",
		Actor:         "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/"+res.Object.Key, res.URL)
	assert.Equal(t, "image/jpeg", res.Object.ContentType)
	assert.Equal(t, "jpeg", res.SourceFormat)

	stored, _, err := store.Get(context.Background(), res.Object.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Object.Size, int64(len(stored)))
	b := decodeJPEG(t, stored).Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 400, b.Dy())
}

func TestProcessFormatsConverge(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	svc := newTestService(t, store)

	inputs := map[string][]byte{
		"image/jpeg": jpegBytes(t, 120, 800),
		"image/png":  pngBytes(t, gradient(900, 100)),
		"image/webp": webpBytes(t, webpWideB64),
	}
	for declared, data := range inputs {
		res, err := svc.Process(context.Background(), Request{Data: data, DeclaredType: declared, Category: "blog"})
		require.NoError(t, err, declared)
		stored, _, err := store.Get(context.Background(), res.Object.Key)
		require.NoError(t, err)
		b := decodeJPEG(t, stored).Bounds()
		assert.Equal(t, image.Pt(400, 400), b.Size(), declared)
	}
	assert.Equal(t, 3, store.Len())
}

func TestProcessTooLargeNeverDecodes(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("image/jpeg", countingDecoder{Decoder: JPEGDecoder, calls: &calls})
	reg.Register("image/png", countingDecoder{Decoder: PNGDecoder, calls: &calls})

	store := new(mocks.MockStore)
	resolver, err := NewResolver("/media")
	require.NoError(t, err)
	svc, err := NewService(store, NewNormalizer(reg, NormalizeOptions{}), resolver, ServiceOptions{Limits: testLimits})
	require.NoError(t, err)

	payload := make([]byte, 15<<20)
	copy(payload, jpegBytes(t, 10, 10))

	res, err := svc.Process(context.Background(), Request{Data: payload, DeclaredType: "image/jpeg", Category: "team"})
	assert.Nil(t, res)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, TooLarge, ve.Kind)
	assert.Equal(t, int32(0), calls.Load())
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)

	// the counter does count when decoding is reached
	_, _, err = svc.normalizer.Decode(pngBytes(t, gradient(4, 4)))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProcessUnsupportedTypeNeverDecodes(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	svc := newTestService(t, store)

	_, err := svc.Process(context.Background(), Request{Data: jpegBytes(t, 8, 8), DeclaredType: "image/svg+xml", Category: "team"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, UnsupportedType, ve.Kind)
	assert.Zero(t, store.Len())
}

func TestProcessGarbagePNG(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	var states []State
	svc := newTestService(t, store, WithTransitionHook(func(_, to State) { states = append(states, to) }))

	_, err := svc.Process(context.Background(), Request{
		Data:          []byte("GIF? PNG? neither. just text pretending to be photo.png"),
		DeclaredType:  "image/png",
		Category:      "events",
		SuggestedName: "photo.png",
	})
	var de *DecodeError
	require.True(t, errors.As(err, &de), "got %v", err)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Validated, se.State)
	assert.Equal(t, []State{Validated, Errored}, states)
	assert.Zero(t, store.Len())
	assert.True(t, IsClientError(err))
}

func TestProcessInvalidCategory(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	svc := newTestService(t, store)

	for _, cat := range []string{"", "mentors", "../team", "Team"} {
		_, err := svc.Process(context.Background(), Request{Data: jpegBytes(t, 8, 8), DeclaredType: "image/jpeg", Category: cat})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), cat)
		assert.Equal(t, InvalidCategory, ve.Kind)
	}
	assert.Zero(t, store.Len())
}

func TestProcessStateTransitions(t *testing.T) {
	var mu sync.Mutex
	var got [][2]State
	svc := newTestService(t, storage.NewMemoryStore("uploads"), WithTransitionHook(func(from, to State) {
		mu.Lock()
		got = append(got, [2]State{from, to})
		mu.Unlock()
	}))

	_, err := svc.Process(context.Background(), Request{Data: jpegBytes(t, 30, 30), DeclaredType: "image/jpeg", Category: "team"})
	require.NoError(t, err)
	assert.Equal(t, [][2]State{
		{Received, Validated},
		{Validated, Decoded},
		{Decoded, Resized},
		{Resized, Stored},
		{Stored, Resolved},
		{Resolved, Complete},
	}, got)
}

func TestProcessCancelledMidway(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(t, store, WithTransitionHook(func(_, to State) {
		if to == Decoded {
			cancel()
		}
	}))
	_, err := svc.Process(ctx, Request{Data: jpegBytes(t, 30, 30), DeclaredType: "image/jpeg", Category: "team"})
	require.ErrorIs(t, err, context.Canceled)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Decoded, se.State)
	assert.Zero(t, store.Len())
}

func TestProcessStorageFailures(t *testing.T) {
	tests := []struct {
		name      string
		storeErr  error
		want      error
		retryable bool
	}{
		{"unavailable", fmt.Errorf("put: %w", storage.ErrStorageUnavailable), storage.ErrStorageUnavailable, true},
		{"quota", fmt.Errorf("put: %w", storage.ErrQuotaExceeded), storage.ErrQuotaExceeded, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := new(mocks.MockStore)
			store.On("Put", mock.Anything, mock.Anything, mock.MatchedBy(func(o storage.PutOptions) bool {
				return o.Namespace == "blog" && o.ContentType == "image/jpeg"
			})).Return(nil, tc.storeErr).Once()

			svc := newTestService(t, store)
			res, err := svc.Process(context.Background(), Request{Data: jpegBytes(t, 16, 16), DeclaredType: "image/jpeg", Category: "blog"})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, IsClientError(err))
			assert.Equal(t, tc.retryable, IsRetryable(err))

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, Resized, se.State)
			store.AssertExpectations(t)
		})
	}
}

func TestProcessConcurrentUploadsDistinctKeys(t *testing.T) {
	const n = 60
	store := storage.NewMemoryStore("uploads")
	svc := newTestService(t, store)
	payload := pngBytes(t, gradient(40, 40))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		keys = map[string]bool{}
		urls = map[string]bool{}
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Process(context.Background(), Request{
				Data:         payload,
				DeclaredType: "image/png",
				Category:     "team",
				Actor:        fmt.Sprintf("admin-%d", i%5),
			})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			keys[res.Object.Key] = true
			urls[res.URL] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	assert.Len(t, keys, n)
	assert.Len(t, urls, n)
	assert.Equal(t, n, store.Len())
}

func TestNewServiceConfiguration(t *testing.T) {
	resolver, err := NewResolver("/media")
	require.NoError(t, err)

	_, err = NewService(nil, nil, resolver, ServiceOptions{})
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))

	_, err = NewService(storage.NewMemoryStore(""), nil, nil, ServiceOptions{})
	assert.True(t, errors.As(err, &ce))

	_, err = NewService(storage.NewMemoryStore(""), nil, resolver, ServiceOptions{Categories: []string{"Bad Name"}})
	assert.True(t, errors.As(err, &ce))

	svc, err := NewService(storage.NewMemoryStore(""), nil, resolver, ServiceOptions{})
	require.NoError(t, err)
	assert.True(t, svc.CategoryAllowed("anything-valid"))
	assert.False(t, svc.CategoryAllowed("no/slash"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "received", Received.String())
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "state(42)", State(42).String())
}
