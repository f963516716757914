package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
)

// Fetcher is the protocol surface the downloader needs; *col.Client
// implements it.
type Fetcher interface {
	GetItemFilesize(ctx context.Context, item domain.MetadataItem) (int64, error)
	DownloadChunk(ctx context.Context, path string, r domain.Range) (*http.Response, error)
}

// Downloader moves a single item through
// Idle -> ProbingLength -> Downloading -> Complete | Failed.
// Any failure goes straight to Failed; nothing is retried.
type Downloader struct {
	fetcher   Fetcher
	log       *logger.Logger
	writer    *FileWriter
	outDir    string
	chunkSize int64
	retry     RetryPolicy

	// OnStateChange, when set, observes every transition.
	OnStateChange func(t *domain.Transfer)
}

func NewDownloader(f Fetcher, log *logger.Logger, outDir string, chunkSize int64) *Downloader {
	return &Downloader{
		fetcher:   f,
		log:       log,
		writer:    NewFileWriter(),
		outDir:    outDir,
		chunkSize: chunkSize,
		retry:     NoRetry,
	}
}

// Download probes the item length, streams it into a .part file in the
// output directory and renames it once the byte count checks out.
func (d *Downloader) Download(ctx context.Context, t *domain.Transfer) error {
	defer d.writer.CloseAll()

	if t.State != "" && t.State != domain.StateIdle {
		return fmt.Errorf("transfer %s is %s, not idle", t.ID, t.State)
	}
	t.StartedAt = time.Now()

	d.setState(t, domain.StateProbingLength)
	total, err := d.fetcher.GetItemFilesize(ctx, t.Item)
	if err != nil {
		return d.fail(t, &domain.TransferError{Step: domain.StepProbe, Chunk: -1, Err: err})
	}
	t.TotalBytes = total

	if err := os.MkdirAll(d.outDir, 0755); err != nil {
		return d.fail(t, &domain.TransferError{Step: domain.StepWrite, Chunk: -1, Err: fmt.Errorf("failed to create out_dir: %w", err)})
	}

	finalPath := filepath.Join(d.outDir, SanitizeFileName(t.FileName))
	partPath := finalPath + ".part"

	if err := d.writer.PreAllocate(partPath, total); err != nil {
		return d.fail(t, &domain.TransferError{Step: domain.StepWrite, Chunk: -1, Err: err})
	}

	d.setState(t, domain.StateDownloading)
	d.log.Info("Downloading %s (%d bytes, %d chunks)", t.FileName, total, domain.RangeCount(total, d.chunkSize))

	w := &countingWriter{w: d.writer.Sequential(partPath), t: t}
	if _, err := d.DownloadChunks(ctx, t.Item, total, w, d.chunkSize); err != nil {
		d.writer.Discard(partPath)
		return d.fail(t, err)
	}

	if err := d.writer.Finalize(partPath, finalPath, total); err != nil {
		d.writer.Discard(partPath)
		return d.fail(t, &domain.TransferError{Step: domain.StepWrite, Chunk: -1, Err: err})
	}

	t.FinishedAt = time.Now()
	d.setState(t, domain.StateComplete)
	d.log.Info("Finished: %s -> %s", t.FileName, finalPath)
	return nil
}

// DownloadChunks copies totalSize bytes of item into w, one range at a time
// and in ascending order. It returns the number of bytes written; anything
// other than totalSize comes with an error.
func (d *Downloader) DownloadChunks(ctx context.Context, item domain.MetadataItem, totalSize int64, w io.Writer, chunkSize int64) (int64, error) {
	if chunkSize <= 0 {
		return 0, &domain.TransferError{Step: domain.StepChunk, Chunk: -1, Err: fmt.Errorf("chunk size %d must be positive", chunkSize)}
	}

	// reused for every chunk
	buf := make([]byte, min(chunkSize, max(totalSize, 0)))

	var written int64
	for c, err := range d.chunkStage(ctx, item.Path, totalSize, chunkSize) {
		if err != nil {
			return written, &domain.TransferError{Step: domain.StepChunk, Chunk: c.index, Err: err}
		}

		n, err := io.ReadFull(c.body, buf[:c.rng.Count()])
		c.body.Close()
		if err != nil {
			return written, &domain.TransferError{Step: domain.StepChunk, Chunk: c.index, Err: fmt.Errorf("read %s: %w", c.rng.Header(), err)}
		}

		m, err := w.Write(buf[:n])
		written += int64(m)
		if err != nil {
			return written, &domain.TransferError{Step: domain.StepWrite, Chunk: c.index, Err: err}
		}
	}

	if written != totalSize {
		return written, &domain.TransferError{
			Step:  domain.StepVerify,
			Chunk: -1,
			Err:   fmt.Errorf("%w: wrote %d of %d bytes", domain.ErrLengthMismatch, written, totalSize),
		}
	}

	return written, nil
}

func (d *Downloader) setState(t *domain.Transfer, s domain.TransferState) {
	d.log.Debug("Transfer %s: %s -> %s", t.ID, t.State, s)
	t.State = s
	if d.OnStateChange != nil {
		d.OnStateChange(t)
	}
}

func (d *Downloader) fail(t *domain.Transfer, err error) error {
	t.Error = err.Error()
	t.FinishedAt = time.Now()
	d.setState(t, domain.StateFailed)
	d.log.Error("Transfer of %s failed: %v", t.FileName, err)
	return err
}

// countingWriter publishes progress on the transfer as bytes land.
type countingWriter struct {
	w io.Writer
	t *domain.Transfer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.t.BytesWritten.Add(int64(n))
	return n, err
}
