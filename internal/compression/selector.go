package compression

import "strings"

// Policy bounds when compression is attempted and when its result is kept.
type Policy struct {
	MinSize  int64   // below this size compression is never attempted
	MaxSize  int64   // above this size only text-like files are compressed
	MinRatio float64 // minimum 1 - compressed/original to keep the result
}

// DefaultPolicy: 1KB minimum, 100MB maximum, 10% minimum reduction.
var DefaultPolicy = Policy{
	MinSize:  1024,
	MaxSize:  100 * 1024 * 1024,
	MinRatio: 0.1,
}

// otherwiseThreshold is the size above which files of unknown type are compressed.
const otherwiseThreshold = 100 * 1024

var archiveExtensions = []string{".zip", ".rar", ".7z", ".gz", ".bz2", ".xz"}

var compressedMimeTypes = map[string]bool{
	"application/zip":              true,
	"application/gzip":             true,
	"application/x-zip-compressed": true,
	"application/x-rar-compressed": true,
	"application/x-7z-compressed":  true,
}

// ShouldCompress reports whether compressing a file with the given size, MIME
// type and name is likely to pay off. The first matching rule wins.
func ShouldCompress(size int64, mimeType, name string, p Policy) bool {
	mimeType = strings.ToLower(mimeType)
	name = strings.ToLower(name)

	if size < p.MinSize {
		return false
	}

	// Huge files: only text is worth the CPU.
	if size > p.MaxSize {
		return isTextLike(mimeType)
	}

	for _, ext := range archiveExtensions {
		if strings.HasSuffix(name, ext) {
			return false
		}
	}

	if compressedMimeTypes[mimeType] {
		return false
	}

	if isCompressedMedia(mimeType) {
		return false
	}

	if isTextLike(mimeType) || strings.Contains(mimeType, "pdf") {
		return true
	}

	return size > otherwiseThreshold
}

func isTextLike(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		strings.Contains(mimeType, "json") ||
		strings.Contains(mimeType, "xml") ||
		strings.Contains(mimeType, "document")
}

func isCompressedMedia(mimeType string) bool {
	if strings.HasPrefix(mimeType, "video/") || strings.HasPrefix(mimeType, "audio/") {
		return true
	}
	if strings.HasPrefix(mimeType, "image/") {
		return strings.Contains(mimeType, "jpeg") ||
			strings.Contains(mimeType, "png") ||
			strings.Contains(mimeType, "webp")
	}
	return false
}
