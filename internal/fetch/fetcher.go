// Package fetch downloads audio streams. One network request per track at a
// time; completions are posted to a results channel consumed by the session
// loop, never delivered from arbitrary goroutines into shared state.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("fetch: stream not found")
	ErrForbidden = errors.New("fetch: stream forbidden")

	// ErrAuthExpired marks a 401; recovered once via token refresh.
	ErrAuthExpired = errors.New("fetch: auth token expired")

	// ErrReauthRequired means refresh failed too and the user has to log in
	// again.
	ErrReauthRequired = errors.New("fetch: re-authentication required")
)

// TokenProvider is the authentication collaborator. Token returns a valid
// access token; Refresh forces a new one after a 401.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Result is one completed download. Data is the full body; partial bodies
// never appear here.
type Result struct {
	TrackID int64
	Data    []byte
	Err     error
}

type request struct {
	id     string
	cancel context.CancelFunc
}

type Fetcher struct {
	client   *http.Client
	tokens   TokenProvider
	log      *zap.Logger
	retries  uint64
	interval time.Duration

	mu       sync.Mutex
	inflight map[int64]*request

	results chan Result
}

func New(tokens TokenProvider, log *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: 2 * time.Minute},
		tokens:   tokens,
		log:      log,
		retries:  3,
		interval: 500 * time.Millisecond,
		inflight: make(map[int64]*request),
		results:  make(chan Result, 8),
	}
}

// Results delivers completed downloads, exactly one per accepted Fetch that
// was not cancelled.
func (f *Fetcher) Results() <-chan Result {
	return f.results
}

// Fetch starts a download unless one for the same track is already in
// flight, in which case the call coalesces with it and no second network
// request is made.
func (f *Fetcher) Fetch(trackID int64, streamURL string) {
	f.mu.Lock()
	if _, ok := f.inflight[trackID]; ok {
		f.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &request{id: uuid.NewString(), cancel: cancel}
	f.inflight[trackID] = req
	f.mu.Unlock()

	f.log.Debug("fetch started",
		zap.Int64("track", trackID),
		zap.String("request", req.id))

	go f.run(ctx, req, trackID, streamURL)
}

// Cancel aborts the in-flight fetch for a track, if any. A cancelled fetch
// never posts a result.
func (f *Fetcher) Cancel(trackID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLocked(trackID)
}

// CancelExcept aborts every in-flight fetch whose track is not listed. The
// session calls this on navigation so only "current or look-ahead" keeps
// downloading.
func (f *Fetcher) CancelExcept(keep ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for trackID := range f.inflight {
		kept := false
		for _, id := range keep {
			if id == trackID {
				kept = true
				break
			}
		}
		if !kept {
			f.cancelLocked(trackID)
		}
	}
}

// Close aborts every in-flight fetch.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for trackID := range f.inflight {
		f.cancelLocked(trackID)
	}
}

func (f *Fetcher) cancelLocked(trackID int64) {
	req, ok := f.inflight[trackID]
	if !ok {
		return
	}
	req.cancel()
	delete(f.inflight, trackID)
	f.log.Debug("fetch cancelled",
		zap.Int64("track", trackID),
		zap.String("request", req.id))
}

// InFlight reports whether a download for the track is running.
func (f *Fetcher) InFlight(trackID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inflight[trackID]
	return ok
}

func (f *Fetcher) run(ctx context.Context, req *request, trackID int64, streamURL string) {
	data, err := f.download(ctx, streamURL)

	f.mu.Lock()
	if cur, ok := f.inflight[trackID]; ok && cur == req {
		delete(f.inflight, trackID)
	}
	f.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	if err != nil {
		f.log.Warn("fetch failed",
			zap.Int64("track", trackID),
			zap.String("request", req.id),
			zap.Error(err))
	} else {
		f.log.Info("fetch complete",
			zap.Int64("track", trackID),
			zap.String("request", req.id),
			zap.Int("bytes", len(data)))
	}

	f.results <- Result{TrackID: trackID, Data: data, Err: err}
}

// download runs the request with bounded exponential backoff. 404 and 403
// are permanent; a 401 gets one token refresh before giving up with
// ErrReauthRequired.
func (f *Fetcher) download(ctx context.Context, streamURL string) ([]byte, error) {
	refreshed := false
	var data []byte

	op := func() error {
		token, err := f.tokens.Token(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrReauthRequired, err))
		}

		body, err := f.get(ctx, streamURL, token)
		switch {
		case err == nil:
			data = body
			return nil
		case errors.Is(err, ErrAuthExpired):
			if refreshed {
				return backoff.Permanent(ErrReauthRequired)
			}
			refreshed = true
			if _, rerr := f.tokens.Refresh(ctx); rerr != nil {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrReauthRequired, rerr))
			}
			return err
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, f.retries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, streamURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusUnauthorized:
		return nil, ErrAuthExpired
	case http.StatusForbidden:
		return nil, ErrForbidden
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
}
