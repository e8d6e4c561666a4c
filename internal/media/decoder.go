package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"bookmarks-browser/internal/formats"
	"bookmarks-browser/internal/logging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Decoder converts a source file into a raster no larger than targetSize on
// its longer edge. Implementations must respect ctx cancellation; a hung
// decode of one pathological file must not stall the worker forever.
type Decoder interface {
	DecodeAndResize(ctx context.Context, sourcePath string, targetSize int) (image.Image, error)
}

// DefaultDecoder decodes stills via libvips (when initialized) with a
// pure-Go fallback chain, and movies via an ffmpeg middle-frame grab.
type DefaultDecoder struct{}

// DecodeAndResize implements Decoder.
func (DefaultDecoder) DecodeAndResize(ctx context.Context, sourcePath string, targetSize int) (image.Image, error) {
	switch formats.Classify(sourcePath) {
	case formats.SourceVideo:
		return decodeVideoFrame(ctx, sourcePath, targetSize)
	case formats.SourceImage:
		return decodeStill(ctx, sourcePath, targetSize)
	default:
		return nil, fmt.Errorf("no pixel data in %s", sourcePath)
	}
}

func decodeStill(ctx context.Context, sourcePath string, targetSize int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if IsVipsAvailable() {
		img, err := loadImageWithVips(sourcePath, targetSize)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips decode failed for %s: %v, trying fallback methods", sourcePath, err)
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v", sourcePath, err)

	img, err = decodeImageFile(sourcePath)
	if err == nil {
		return img, nil
	}
	logging.Debug("standard decode failed for %s: %v, trying ffmpeg fallback", sourcePath, err)

	img, err = extractFrame(ctx, sourcePath, "")
	if err != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", sourcePath, err)
	}
	return img, nil
}

func decodeImageFile(sourcePath string) (image.Image, error) {
	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", sourcePath, err)
		}
	}()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	logging.Debug("Decoded image format: %s for %s", format, sourcePath)
	return img, nil
}

// decodeVideoFrame grabs the middle frame of the timeline as the movie's
// representative still.
func decodeVideoFrame(ctx context.Context, sourcePath string, targetSize int) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	seek := ""
	if duration, err := probeDuration(ctx, sourcePath); err == nil && duration > 0 {
		seek = strconv.FormatFloat(duration/2, 'f', 3, 64)
	} else {
		logging.Debug("duration probe failed for %s: %v, sampling first frame", sourcePath, err)
	}

	img, err := extractFrame(ctx, sourcePath, seek)
	if err != nil && seek != "" {
		// Seek past a truncated container fails; retry from the start.
		logging.Debug("seeked frame grab failed for %s: %v, retrying without seek", sourcePath, err)
		img, err = extractFrame(ctx, sourcePath, "")
	}
	if err != nil {
		return nil, err
	}

	_ = targetSize // resize happens in the generator after channel repair
	return img, nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func probeDuration(ctx context.Context, sourcePath string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sourcePath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// extractFrame shells out to ffmpeg for a single PNG frame. An empty seek
// samples the first frame.
func extractFrame(ctx context.Context, sourcePath, seek string) (image.Image, error) {
	args := []string{}
	if seek != "" {
		args = append(args, "-ss", seek)
	}
	args = append(args,
		"-i", sourcePath,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", sourcePath)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}

	return img, nil
}
