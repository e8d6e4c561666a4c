package items

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Frame sequences are detected by the last run of digits in the file name
// (the frame counter by pipeline convention). A version token like "v002"
// earlier in the name is left untouched because only the last run counts.
var frameRun = regexp.MustCompile(`(\d+)(?:\.[^.]+)?$`)

// SequenceParts is the decomposition of a frame file name around its counter.
type SequenceParts struct {
	Prefix  string // path up to the frame counter
	Frame   string // the digits, padding preserved
	Suffix  string // extension (including the dot)
	Padding int
}

// SplitSequence decomposes path around its frame counter. ok is false when
// the name carries no counter (a single, non-sequence file).
func SplitSequence(path string) (SequenceParts, bool) {
	base := filepath.Base(path)
	loc := frameRun.FindStringSubmatchIndex(base)
	if loc == nil {
		return SequenceParts{}, false
	}

	// Submatch 1 is the digit run.
	start, end := loc[2], loc[3]
	dir := path[:len(path)-len(base)]

	return SequenceParts{
		Prefix:  dir + base[:start],
		Frame:   base[start:end],
		Suffix:  base[end:],
		Padding: end - start,
	}, true
}

// ProxyPath returns the canonical collapsed-sequence representation of a
// frame path: the counter replaced by a printf-style padding token. This is
// the mirroring key shared by a sequence record and its member files.
func ProxyPath(path string) (string, bool) {
	parts, ok := SplitSequence(path)
	if !ok {
		return path, false
	}
	return fmt.Sprintf("%s%%0%dd%s", parts.Prefix, parts.Padding, parts.Suffix), true
}

// IsProxyPath reports whether path already carries a padding token.
func IsProxyPath(path string) bool {
	return strings.Contains(path, "%0") && strings.Contains(path, "d")
}

// SharedProxyPath resolves the mirroring key for any record: a sequence
// record's own path, or the proxy form of a file record's path. ok is false
// for files that are not part of a sequence.
func SharedProxyPath(r *Record) (string, bool) {
	if r.Type == SequenceItem {
		return r.Path, true
	}
	return ProxyPath(r.Path)
}
