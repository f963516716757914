package engine

import (
	"context"
	"io"
	"iter"
	"net/http"

	"github.com/datallboy/gocol/internal/domain"
)

// RetryPolicy bounds how many times a single request is attempted.
type RetryPolicy struct {
	Attempts int
}

// NoRetry is the transfer contract: the first failed request aborts the item.
var NoRetry = RetryPolicy{Attempts: 1}

// chunk is one fetched range whose body the consumer must read and close.
type chunk struct {
	index int
	rng   domain.Range
	body  io.ReadCloser
}

// chunkStage produces chunks in range order. It only issues the next
// request after the consumer has handed the previous chunk back, so at most
// one request is in flight. On failure it yields the failing chunk's
// index with the error and stops.
func (d *Downloader) chunkStage(ctx context.Context, path string, total, step int64) iter.Seq2[chunk, error] {
	return func(yield func(chunk, error) bool) {
		index := 0
		for r := range domain.IterateRange(total, step) {
			resp, err := d.fetch(ctx, path, r)
			if err != nil {
				yield(chunk{index: index, rng: r}, err)
				return
			}

			if !yield(chunk{index: index, rng: r, body: resp.Body}, nil) {
				return
			}
			index++
		}
	}
}

func (d *Downloader) fetch(ctx context.Context, path string, r domain.Range) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < max(d.retry.Attempts, 1); attempt++ {
		resp, err := d.fetcher.DownloadChunk(ctx, path, r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
