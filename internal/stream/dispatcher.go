// Package stream serves encrypted videos over HTTP with byte-range support.
//
// A request first consults the chunk cache. On a miss the whole blob is
// decrypted into a temp file, the requested window is extracted, cached and
// written to the client, and the temp file is released on every exit path.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"vesflix/internal/cache"
	"vesflix/internal/core/domain"
	"vesflix/internal/core/ports"
	"vesflix/internal/encryption/chunking"
	"vesflix/internal/httprange"
	vlog "vesflix/internal/log"
	"vesflix/internal/metrics"
	"vesflix/internal/storage"
	"vesflix/internal/tempfile"
)

const (
	DefaultMaxChunkBytes  = 64 << 20
	DefaultDecryptTimeout = 10 * time.Minute
	ContentType           = "video/mp4"
)

// Byte sources for the bytes-served metric.
const (
	sourceCache = "cache"
	sourceTemp  = "temp"
)

// Dispatcher answers GET requests for videos.
type Dispatcher struct {
	meta   ports.MetadataStore
	blobs  ports.BlobStore
	cipher ports.CipherStream
	chunks *cache.ChunkCache
	temps  *tempfile.Manager
	logger zerolog.Logger

	blockSize      int
	maxChunkBytes  int64
	decryptTimeout time.Duration
	onDecrypt      func(videoID string)
}

type Option func(*Dispatcher)

// WithBlockSize sets the read block size used to extract ranges from temp files.
func WithBlockSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.blockSize = size
		}
	}
}

// WithMaxChunkBytes caps the size of ranges written to the cache. Larger
// ranges are streamed straight from the temp file.
func WithMaxChunkBytes(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxChunkBytes = n
		}
	}
}

// WithDecryptTimeout bounds a full-blob decrypt.
func WithDecryptTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.decryptTimeout = timeout
		}
	}
}

// WithDecryptHook registers fn to run at the start of every blob decrypt.
func WithDecryptHook(fn func(videoID string)) Option {
	return func(d *Dispatcher) {
		d.onDecrypt = fn
	}
}

func NewDispatcher(
	meta ports.MetadataStore,
	blobs ports.BlobStore,
	cipher ports.CipherStream,
	chunks *cache.ChunkCache,
	temps *tempfile.Manager,
	logger zerolog.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		meta:           meta,
		blobs:          blobs,
		cipher:         cipher,
		chunks:         chunks,
		temps:          temps,
		logger:         logger,
		blockSize:      chunking.DefaultBlockSize,
		maxChunkBytes:  DefaultMaxChunkBytes,
		decryptTimeout: DefaultDecryptTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeVideo writes the video identified by videoID, honouring the request's
// Range header.
func (d *Dispatcher) ServeVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	ctx := r.Context()
	logger := vlog.WithContext(ctx, d.logger).With().Str(vlog.FieldVideoID, videoID).Logger()
	rangeHeader := r.Header.Get("Range")

	rec, err := d.meta.FindByID(ctx, videoID)
	if err != nil {
		d.fail(w, logger, fmt.Errorf("failed to look up video: %w", err))
		return
	}
	if rec == nil {
		d.fail(w, logger, domain.ErrNotFound)
		return
	}

	if total, ok := d.chunks.VideoSize(ctx, videoID); ok {
		decision := httprange.Parse(rangeHeader, total)
		if decision.Kind == httprange.Invalid {
			d.writeInvalid(w, logger, decision)
			return
		}
		if decision.Kind == httprange.PartialContent && d.serveCached(ctx, w, logger, videoID, decision) {
			return
		}
	}

	tf, err := d.decrypt(ctx, logger, rec)
	if err != nil {
		d.fail(w, logger, err)
		return
	}
	trigger := tempfile.TriggerError
	defer func() { tf.Release(trigger) }()

	total, err := tf.Size()
	if err != nil {
		d.fail(w, logger, domain.NewStreamIOError("stat temp file", err))
		return
	}
	d.chunks.PutVideoSize(ctx, videoID, total)

	decision := httprange.Parse(rangeHeader, total)
	switch decision.Kind {
	case httprange.Invalid:
		trigger = tempfile.TriggerComplete
		d.writeInvalid(w, logger, decision)
		return
	case httprange.PartialContent:
		logger = logger.With().
			Int64(vlog.FieldRangeStart, decision.Range.Start).
			Int64(vlog.FieldRangeEnd, decision.Range.End).
			Int64(vlog.FieldTotalSize, total).
			Logger()
		if decision.Range.Len() <= d.maxChunkBytes {
			err = d.serveExtracted(ctx, w, videoID, tf, decision)
		} else {
			err = d.serveFromFile(ctx, w, tf, decision)
		}
	default:
		err = d.serveFromFile(ctx, w, tf, decision)
	}

	if err != nil {
		var sioe *domain.StreamIOError
		if errors.As(err, &sioe) && sioe.HeadersSent {
			trigger = tempfile.TriggerAbort
			logger.Warn().Err(err).Msg("stream aborted")
			return
		}
		d.fail(w, logger, err)
		return
	}
	trigger = tempfile.TriggerComplete
}

// serveCached answers a partial request from the cache. It reports false on
// a miss, leaving the response untouched.
func (d *Dispatcher) serveCached(ctx context.Context, w http.ResponseWriter, logger zerolog.Logger, videoID string, decision httprange.Decision) bool {
	if snap, ok := d.chunks.Snapshot(ctx, videoID, decision.Range); ok {
		h := w.Header()
		for k, v := range snap.Header {
			h[k] = v
		}
		d.writeBody(w, logger, snap.Status, snap.Body)
		return true
	}

	payload, ok := d.chunks.Get(ctx, videoID, decision.Range)
	if !ok {
		return false
	}
	decision.Headers(w.Header())
	d.writeBody(w, logger, decision.Status(), payload)
	return true
}

func (d *Dispatcher) writeBody(w http.ResponseWriter, logger zerolog.Logger, status int, body []byte) {
	setCommonHeaders(w.Header())
	w.WriteHeader(status)
	metrics.IncResponse(status)
	n, err := w.Write(body)
	metrics.AddBytesServed(sourceCache, int64(n))
	if err != nil {
		logger.Debug().Err(err).Msg("client write failed")
	}
}

// decrypt copies the plaintext of rec into a fresh temp file. On failure the
// partial file is already released.
func (d *Dispatcher) decrypt(ctx context.Context, logger zerolog.Logger, rec *domain.VideoRecord) (*tempfile.File, error) {
	if d.onDecrypt != nil {
		d.onDecrypt(rec.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, d.decryptTimeout)
	defer cancel()

	src, err := d.blobs.Open(ctx, rec.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer src.Close()
	// Blob readers need not honour ctx; closing src unblocks a stuck read.
	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	start := time.Now()
	tf, err := d.temps.Create(rec.ID)
	if err != nil {
		return nil, domain.NewStreamIOError("create temp file", err)
	}

	err = d.copyPlaintext(ctx, tf, src, rec.EncryptionKey)
	metrics.ObserveDecrypt(err == nil, time.Since(start))
	if err != nil {
		tf.Release(tempfile.TriggerError)
		return nil, err
	}

	logger.Debug().
		Str(vlog.FieldTempPath, tf.Path()).
		Dur(vlog.FieldDuration, time.Since(start)).
		Msg("decrypted video into temp file")
	return tf, nil
}

func (d *Dispatcher) copyPlaintext(ctx context.Context, dst io.Writer, src io.Reader, hexKey string) error {
	plain, err := d.cipher.Decrypt(ctx, src, hexKey)
	if err != nil {
		return decryptErr(ctx, err)
	}
	defer plain.Close()

	if _, err := io.Copy(dst, plain); err != nil {
		var sioe *domain.StreamIOError
		if domain.IsCryptoError(err) || errors.As(err, &sioe) || ctx.Err() != nil {
			return decryptErr(ctx, err)
		}
		return domain.NewStreamIOError("write temp file", err)
	}
	return nil
}

// decryptErr reports an expired watchdog or a dropped client instead of the
// read error caused by closing the blob.
func decryptErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.NewStreamIOError("decrypt", errors.Join(ctxErr, err))
	}
	return err
}

// serveExtracted reads the window into memory, caches it and writes it.
func (d *Dispatcher) serveExtracted(ctx context.Context, w http.ResponseWriter, videoID string, tf *tempfile.File, decision httprange.Decision) error {
	payload, err := chunking.ReadRange(tf, decision.Range.Start, decision.Range.End, d.blockSize)
	if err != nil {
		return domain.NewStreamIOError("extract range", err)
	}

	d.chunks.Put(ctx, videoID, decision.Range, decision.Total, payload, 0)

	decision.Headers(w.Header())
	setCommonHeaders(w.Header())
	w.WriteHeader(decision.Status())
	metrics.IncResponse(decision.Status())

	n, err := w.Write(payload)
	metrics.AddBytesServed(sourceTemp, int64(n))
	if err != nil {
		return &domain.StreamIOError{Op: "write response", HeadersSent: true, Err: err}
	}
	return nil
}

// serveFromFile streams the window straight from the temp file.
func (d *Dispatcher) serveFromFile(ctx context.Context, w http.ResponseWriter, tf *tempfile.File, decision httprange.Decision) error {
	window, hasBody := decision.Window()

	var reader *chunking.RangeReader
	if hasBody {
		var err error
		reader, err = chunking.NewRangeReader(tf, window.Start, window.End, d.blockSize)
		if err != nil {
			return domain.NewStreamIOError("open range", err)
		}
	}

	decision.Headers(w.Header())
	setCommonHeaders(w.Header())
	w.WriteHeader(decision.Status())
	metrics.IncResponse(decision.Status())
	if !hasBody {
		return nil
	}

	n, err := reader.WriteTo(&ctxWriter{ctx: ctx, w: w})
	metrics.AddBytesServed(sourceTemp, n)
	if err != nil {
		return &domain.StreamIOError{Op: "write response", HeadersSent: true, Err: err}
	}
	return nil
}

// writeInvalid answers an unsatisfiable range with an empty body.
func (d *Dispatcher) writeInvalid(w http.ResponseWriter, logger zerolog.Logger, decision httprange.Decision) {
	err := decision.Err()
	status := statusFor(err)
	logger.Debug().Err(err).Int(vlog.FieldStatus, status).Int64(vlog.FieldTotalSize, decision.Total).Msg("video request rejected")

	decision.Headers(w.Header())
	setCommonHeaders(w.Header())
	w.WriteHeader(status)
	metrics.IncResponse(status)
}

// fail writes a clean error response. Only valid before headers are sent.
func (d *Dispatcher) fail(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int(vlog.FieldStatus, status).Msg("video request failed")
	} else {
		logger.Debug().Err(err).Int(vlog.FieldStatus, status).Msg("video request rejected")
	}

	h := w.Header()
	h.Del("Content-Range")
	h.Del("Accept-Ranges")
	setCommonHeaders(h)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	body := http.StatusText(status) + "\n"
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	metrics.IncResponse(status)
	_, _ = io.WriteString(w, body)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, storage.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

func setCommonHeaders(h http.Header) {
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", ContentType)
	}
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Access-Control-Allow-Origin", "*")
}

// ctxWriter stops a long copy once the client has gone away.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}
