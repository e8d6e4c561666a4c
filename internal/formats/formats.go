package formats

import (
	"path/filepath"
	"strings"
)

// SourceType classifies what kind of media a file extension denotes.
type SourceType string

const (
	// SourceImage represents a still-image file.
	SourceImage SourceType = "image"
	// SourceVideo represents a movie container.
	SourceVideo SourceType = "video"
	// SourceScene represents a DCC scene or cache file (no pixel data).
	SourceScene SourceType = "scene"
	// SourceOther represents an unknown or unsupported file type.
	SourceOther SourceType = "other"
)

// ImageExtensions maps file extensions to whether they are decodable still images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".tga":  true,
	".exr":  true,
	".dpx":  true,
	".hdr":  true,
	".psd":  true,
	".sgi":  true,
	".iff":  true,
}

// VideoExtensions maps file extensions to whether they are movie containers.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".m4v":  true,
	".mxf":  true,
	".r3d":  true,
}

// SceneExtensions maps file extensions of DCC scenes and caches. These carry
// no decodable pixel data; thumbnails fall back to a format placeholder.
var SceneExtensions = map[string]bool{
	".ma":   true,
	".mb":   true,
	".abc":  true,
	".usd":  true,
	".usda": true,
	".usdc": true,
	".obj":  true,
	".fbx":  true,
	".ass":  true,
	".vdb":  true,
	".hip":  true,
	".nk":   true,
}

// LinearExtensions lists formats whose pixel data is stored in linear light
// and needs a display gamma applied before 8-bit quantization.
var LinearExtensions = map[string]bool{
	".exr": true,
	".hdr": true,
	".dpx": true,
}

// Classify returns the SourceType for a path based on its extension.
func Classify(path string) SourceType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ImageExtensions[ext]:
		return SourceImage
	case VideoExtensions[ext]:
		return SourceVideo
	case SceneExtensions[ext]:
		return SourceScene
	default:
		return SourceOther
	}
}

// IsLinear reports whether a path's format stores linear-light pixel data.
func IsLinear(path string) bool {
	return LinearExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsBrowsable reports whether the scanner should list a file at all.
func IsBrowsable(path string) bool {
	return Classify(path) != SourceOther
}
