package media

import (
	"context"
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bookmarks-browser/internal/formats"
	"bookmarks-browser/internal/items"
	"bookmarks-browser/internal/logging"
	"bookmarks-browser/internal/metrics"

	"github.com/disintegration/imaging"
)

const (
	// DefaultThumbnailSize bounds the longer edge of generated thumbnails.
	DefaultThumbnailSize = 512

	// DefaultSizeCeiling rejects sources above this byte count outright.
	// Render outputs in the hundreds of megabytes would stall the pool.
	DefaultSizeCeiling = 500 << 20

	// DefaultDecodeTimeout is the per-item watchdog for a single decode.
	DefaultDecodeTimeout = 30 * time.Second
)

// Result is one generated (or cached) thumbnail.
type Result struct {
	Image      image.Image
	Path       string // on-disk cache location; empty for the error sentinel
	Background color.RGBA
	Failed     bool // error sentinel, not real pixel data
}

// Config tunes a Generator. Zero values select the defaults above.
type Config struct {
	Size          int
	SizeCeiling   int64
	DecodeTimeout time.Duration
	Decoder       Decoder
	Pixmaps       *PixmapCache
}

// Generator converts source files into bounded, color-corrected, alpha-safe
// thumbnails persisted under a per-bookmark cache directory, with a
// process-wide in-memory cache in front of the disk cache.
type Generator struct {
	cacheDir string
	size     int
	ceiling  int64
	timeout  time.Duration
	decoder  Decoder
	pixmaps  *PixmapCache
	mu       sync.Mutex
}

// NewGenerator creates a generator writing into cacheDir.
func NewGenerator(cacheDir string, cfg Config) *Generator {
	if cfg.Size <= 0 {
		cfg.Size = DefaultThumbnailSize
	}
	if cfg.SizeCeiling <= 0 {
		cfg.SizeCeiling = DefaultSizeCeiling
	}
	if cfg.DecodeTimeout <= 0 {
		cfg.DecodeTimeout = DefaultDecodeTimeout
	}
	if cfg.Decoder == nil {
		cfg.Decoder = DefaultDecoder{}
	}
	if cfg.Pixmaps == nil {
		cfg.Pixmaps = defaultPixmaps
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		logging.Warn("Thumbnail cache dir unavailable: %v", err)
	}

	return &Generator{
		cacheDir: cacheDir,
		size:     cfg.Size,
		ceiling:  cfg.SizeCeiling,
		timeout:  cfg.DecodeTimeout,
		decoder:  cfg.Decoder,
		pixmaps:  cfg.Pixmaps,
	}
}

// Size returns the configured thumbnail bound.
func (g *Generator) Size() int { return g.size }

func (g *Generator) cachePath(sourcePath string) string {
	hash := md5.Sum([]byte(sourcePath))
	return filepath.Join(g.cacheDir, fmt.Sprintf("%x_%d.png", hash, g.size))
}

// Thumbnail returns the thumbnail for sourcePath, generating and caching it
// when needed. Decode failures never surface as errors: they yield the error
// sentinel so the caller can latch its loaded flag and move on.
func (g *Generator) Thumbnail(ctx context.Context, sourcePath string) Result {
	if res, ok := g.pixmaps.Get(sourcePath, g.size); ok {
		metrics.ThumbnailCacheHits.WithLabelValues("memory").Inc()
		return res
	}

	cachePath := g.cachePath(sourcePath)
	if res, ok := g.loadFromDisk(sourcePath, cachePath); ok {
		metrics.ThumbnailCacheHits.WithLabelValues("disk").Inc()
		return res
	}
	metrics.ThumbnailCacheMisses.Inc()

	// One generation at a time; the worker pool provides the parallelism and
	// this keeps decode memory bounded.
	g.mu.Lock()
	defer g.mu.Unlock()

	// A racing caller may have generated it while we waited.
	if res, ok := g.pixmaps.Get(sourcePath, g.size); ok {
		return res
	}

	res := g.generate(ctx, sourcePath, cachePath)
	g.pixmaps.Put(sourcePath, g.size, res)
	return res
}

func (g *Generator) loadFromDisk(sourcePath, cachePath string) (Result, bool) {
	img, err := imaging.Open(cachePath)
	if err != nil {
		return Result{}, false
	}

	res := Result{
		Image:      img,
		Path:       cachePath,
		Background: readBackgroundSidecar(cachePath),
	}
	g.pixmaps.Put(sourcePath, g.size, res)
	return res, true
}

func (g *Generator) generate(ctx context.Context, sourcePath, cachePath string) Result {
	source := formats.Classify(sourcePath)
	start := time.Now()

	// A sequence key with a padding token never names a real file; callers
	// must resolve a member frame first.
	if items.IsProxyPath(sourcePath) {
		logging.Debug("Thumbnail source is a sequence key, not a file: %s", sourcePath)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "error_sequence_key").Inc()
		return g.sentinel()
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		logging.Debug("Thumbnail source not accessible: %s: %v", sourcePath, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "error_not_found").Inc()
		return g.sentinel()
	}

	if info.Size() > g.ceiling {
		logging.Debug("Thumbnail source over ceiling (%d bytes): %s", info.Size(), sourcePath)
		metrics.ThumbnailOversizeRejections.Inc()
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "error_oversize").Inc()
		return g.sentinel()
	}

	decodeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	img, err := g.decode(decodeCtx, sourcePath)
	metrics.ThumbnailDecodeDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Debug("Thumbnail decode failed: %s: %v", sourcePath, err)
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "error_decode").Inc()
		return g.sentinel()
	}
	if img == nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "error_nil").Inc()
		return g.sentinel()
	}

	// Channel repair: Clone normalizes any decoded layout to NRGBA,
	// broadcasting single-channel sources to RGB and collapsing deep images.
	repaired := imaging.Clone(img)

	// Linear-light sources need a display gamma before 8-bit quantization.
	if formats.IsLinear(sourcePath) {
		repaired = imaging.AdjustGamma(repaired, 2.2)
	}

	thumb := imaging.Fit(repaired, g.size, g.size, imaging.Lanczos)
	background := averageColor(thumb)

	if err := g.writeCacheFile(cachePath, thumb, background); err != nil {
		logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		// Still usable in memory this session.
		cachePath = ""
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues(string(source), "success").Inc()
	return Result{Image: thumb, Path: cachePath, Background: background}
}

// decode runs the decoder under the watchdog. Subprocess decoders die with
// the context; in-process decoders cannot be interrupted, so on expiry the
// in-flight decode is abandoned and its result dropped when it eventually
// lands. The worker moves on either way.
func (g *Generator) decode(ctx context.Context, sourcePath string) (image.Image, error) {
	type outcome struct {
		img image.Image
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		img, err := g.decoder.DecodeAndResize(ctx, sourcePath, g.size)
		done <- outcome{img, err}
	}()

	select {
	case out := <-done:
		return out.img, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeCacheFile persists the thumbnail atomically. Encoding through PNG
// drops any embedded color-profile payload; some ICC blobs are known to
// crash downstream consumers.
func (g *Generator) writeCacheFile(cachePath string, thumb image.Image, bg color.RGBA) error {
	tmp := cachePath + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := imaging.Encode(f, thumb, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, cachePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	writeBackgroundSidecar(cachePath, bg)
	return nil
}

// sentinel is the "failed" thumbnail: a flat dark red raster.
func (g *Generator) sentinel() Result {
	img := imaging.New(g.size, g.size, color.NRGBA{R: 107, G: 24, B: 24, A: 255})
	return Result{
		Image:      img,
		Background: color.RGBA{R: 107, G: 24, B: 24, A: 255},
		Failed:     true,
	}
}

// averageColor computes the mean color of the raster, sampled on a stride.
// The view paints it behind transparent thumbnails.
func averageColor(img image.Image) color.RGBA {
	bounds := img.Bounds()
	if bounds.Empty() {
		return color.RGBA{}
	}

	const stride = 8
	var r, g, b, a, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			pr, pg, pb, pa := img.At(x, y).RGBA()
			r += uint64(pr)
			g += uint64(pg)
			b += uint64(pb)
			a += uint64(pa)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{}
	}

	return color.RGBA{
		R: uint8(r / n >> 8),
		G: uint8(g / n >> 8),
		B: uint8(b / n >> 8),
		A: uint8(a / n >> 8),
	}
}

func backgroundSidecarPath(cachePath string) string {
	return cachePath + ".bg"
}

func writeBackgroundSidecar(cachePath string, bg color.RGBA) {
	payload := fmt.Sprintf("%d %d %d %d", bg.R, bg.G, bg.B, bg.A)
	if err := os.WriteFile(backgroundSidecarPath(cachePath), []byte(payload), 0o644); err != nil {
		logging.Debug("Failed to write background sidecar for %s: %v", cachePath, err)
	}
}

func readBackgroundSidecar(cachePath string) color.RGBA {
	payload, err := os.ReadFile(backgroundSidecarPath(cachePath))
	if err != nil {
		return color.RGBA{}
	}

	var bg color.RGBA
	if _, err := fmt.Sscanf(string(payload), "%d %d %d %d", &bg.R, &bg.G, &bg.B, &bg.A); err != nil {
		return color.RGBA{}
	}
	return bg
}
