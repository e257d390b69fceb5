package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheSnapshot  = "snapshot"
	CacheExact     = "exact"
	CacheContained = "contained"
	CacheMiss      = "miss"
	CacheError     = "error"
)

var (
	// ChunkCacheLookups counts chunk cache lookups by result.
	ChunkCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesflix_chunk_cache_lookups_total",
		Help: "Chunk cache lookups by result",
	}, []string{"result"})

	// ChunkCacheWrites counts chunk cache writes by outcome.
	ChunkCacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesflix_chunk_cache_writes_total",
		Help: "Chunk cache writes by outcome",
	}, []string{"result"})

	// DecryptDuration tracks full-blob decrypts into temp files.
	DecryptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vesflix_decrypt_duration_seconds",
		Help:    "Time taken to decrypt a blob into a temp file",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"result"})

	// TempFilesActive is the number of plaintext temp files on disk.
	TempFilesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vesflix_temp_files_active",
		Help: "Decrypted temp files currently on disk",
	})

	// TempFilesRemoved counts temp file deletions by trigger.
	TempFilesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesflix_temp_files_removed_total",
		Help: "Temp file deletions by trigger",
	}, []string{"trigger"})

	// Responses counts video responses by status code.
	Responses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesflix_video_responses_total",
		Help: "Video responses by HTTP status",
	}, []string{"status"})

	// BytesServed counts body bytes written to clients by source.
	BytesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesflix_video_bytes_served_total",
		Help: "Video body bytes written by source",
	}, []string{"source"})
)

// ObserveCacheLookup records a chunk cache lookup result.
func ObserveCacheLookup(result string) {
	ChunkCacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite records a chunk cache write outcome.
func ObserveCacheWrite(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	ChunkCacheWrites.WithLabelValues(result).Inc()
}

// ObserveDecrypt records a decrypt and its duration.
func ObserveDecrypt(success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	DecryptDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// IncTempFileRemoved records a temp file deletion.
func IncTempFileRemoved(trigger string) {
	TempFilesRemoved.WithLabelValues(trigger).Inc()
}

// IncResponse records a response status.
func IncResponse(status int) {
	Responses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// AddBytesServed records body bytes written from source ("cache" or "plaintext").
func AddBytesServed(source string, n int64) {
	if n > 0 {
		BytesServed.WithLabelValues(source).Add(float64(n))
	}
}
