package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"bookmarks-browser/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library.
// This should be called once at startup. Without it, thumbnail generation
// falls back to the pure-Go decoders and loses EXR/DPX support.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so it respects the app level.
	var vipsLogLevel vips.LogLevel
	var logHandler func(string, vips.LogLevel, string)

	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn, logging.LevelError:
		vipsLogLevel = vips.LogLevelError
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}

	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Conservative memory settings: thumbnails are small and the worker pool
	// already bounds concurrency.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// loadImageWithVips loads and resizes an image using libvips decode-time
// shrinking. Much more memory efficient than decoding full-resolution
// renders and resizing after.
func loadImageWithVips(path string, targetSize int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	logging.Debug("Loading %s with vips (target: %d)", filepath.Base(path), targetSize)

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.Thumbnail(targetSize, targetSize, vips.InterestingNone); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	// Export as PNG so the alpha channel survives to the repair/encode stage.
	imgBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}

	return img, nil
}
