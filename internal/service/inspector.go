// Package service serves JPEG metadata from a directory tree, with a cache
// in front of the decoder.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jrm-1535/exify"
)

var (
	decodeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exify_decode_total",
		Help: "Number of files decoded, by operation and result.",
	}, []string{"op", "result"})

	decodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exify_decode_duration_seconds",
		Help:    "Time spent decoding files, by operation.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"op"})

	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exify_cache_hits_total",
		Help: "Number of cache hits, by cache.",
	}, []string{"cache"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exify_cache_misses_total",
		Help: "Number of cache misses, by cache.",
	}, []string{"cache"})
)

// ErrOutsideRoot is returned for paths that are absolute or climb above the
// served directory.
var ErrOutsideRoot = errors.New("path is outside of the served directory")

// Reader is the metadata reader used by the Inspector. *exify.Reader
// implements it.
type Reader interface {
	GetImageInfo(path string) (exify.Info, error)
	GetThumbnail(path string) ([]byte, error)
}

// Inspector returns the metadata of files found under a root directory.
// Results are cached per file version, identified by path, size and
// modification time.
type Inspector struct {
	reader     Reader
	root       string
	infoCache  *expirable.LRU[string, exify.Info]
	thumbCache *expirable.LRU[string, []byte]
	logger     *slog.Logger
}

// NewInspector returns an Inspector serving files under root. A cacheSize of
// 0 disables caching.
func NewInspector(reader Reader, root string, cacheSize int, ttl time.Duration, logger *slog.Logger) *Inspector {
	s := &Inspector{
		reader: reader,
		root:   root,
		logger: logger.With(slog.String("component", "inspector")),
	}
	if cacheSize > 0 {
		s.infoCache = expirable.NewLRU[string, exify.Info](cacheSize, nil, ttl)
		s.thumbCache = expirable.NewLRU[string, []byte](cacheSize, nil, ttl)
	}
	return s
}

// Resolve maps a slash separated path relative to the root to a file name.
func (s *Inspector) Resolve(rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", ErrOutsideRoot
	}
	return filepath.Join(s.root, local), nil
}

// cacheKey identifies a version of a file; it is empty if the file cannot
// be examined, in which case nothing is cached.
func cacheKey(file string) string {
	st, err := os.Stat(file)
	if err != nil || !st.Mode().IsRegular() {
		return ""
	}
	return fmt.Sprintf("%s|%d|%d", file, st.Size(), st.ModTime().UnixNano())
}

func getCached[V any](c *expirable.LRU[string, V], name, key string) (V, bool) {
	var zero V
	if c == nil || key == "" {
		return zero, false
	}
	if v, ok := c.Get(key); ok {
		cacheHitsTotal.WithLabelValues(name).Inc()
		return v, true
	}
	cacheMissesTotal.WithLabelValues(name).Inc()
	return zero, false
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	decodeTotal.WithLabelValues(op, result).Inc()
	decodeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// withFileName returns a copy of info naming the file rel instead of its
// location below the root.
func withFileName(info exify.Info, rel string) exify.Info {
	info = slices.Clone(info)
	for i := range info {
		if info[i].Label == exify.LabelFileName {
			info[i].Value = path.Clean(rel)
		}
	}
	return info
}

// Info returns the ordered metadata description of the file at rel. The
// file is named by rel in the result.
func (s *Inspector) Info(rel string) (exify.Info, error) {
	file, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	key := cacheKey(file)
	if info, ok := getCached(s.infoCache, "info", key); ok {
		return info, nil
	}

	start := time.Now()
	info, err := s.reader.GetImageInfo(file)
	observe("info", start, err)
	if err != nil {
		s.logger.Warn("decode failed", slog.String("path", rel), slog.String("error", err.Error()))
		return nil, err
	}
	info = withFileName(info, rel)
	if s.infoCache != nil && key != "" {
		s.infoCache.Add(key, info)
	}
	return info, nil
}

// Thumbnail returns the EXIF thumbnail of the file at rel, or nil if there is
// none.
func (s *Inspector) Thumbnail(rel string) ([]byte, error) {
	file, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}
	key := cacheKey(file)
	if thumb, ok := getCached(s.thumbCache, "thumbnail", key); ok {
		return thumb, nil
	}

	start := time.Now()
	thumb, err := s.reader.GetThumbnail(file)
	observe("thumbnail", start, err)
	if err != nil {
		var be *exify.BoundsError
		if errors.As(err, &be) {
			s.logger.Error("corrupt thumbnail", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			s.logger.Warn("decode failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		return nil, err
	}
	if s.thumbCache != nil && key != "" {
		s.thumbCache.Add(key, thumb)
	}
	return thumb, nil
}
