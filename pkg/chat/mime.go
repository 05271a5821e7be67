package chat

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	mimeText   = "text/plain"
	mimeBinary = "application/octet-stream"

	// sniffLen is how much of a file IsTextFile inspects.
	sniffLen = 8 << 10
	// MaxUploadSize caps files read by ReadUpload.
	MaxUploadSize = 10 << 20
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".org": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true, ".xml": true,
	".csv": true, ".tsv": true, ".ini": true, ".env": true, ".sql": true,
	".graphql": true, ".html": true, ".css": true, ".svg": true, ".diff": true,
	".patch": true, ".log": true, ".mk": true, ".dockerfile": true, ".gitignore": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".rs": true, ".java": true, ".kt": true, ".swift": true, ".dart": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cs": true, ".rb": true,
	".ex": true, ".exs": true, ".hs": true, ".zig": true, ".lua": true, ".sh": true,
}

// DetectMimeType guesses a file's content type from its name. Everything
// readable as text maps to text/plain.
func DetectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = strings.ToLower(filepath.Base(path))
	}
	if t, ok := imageTypes[ext]; ok {
		return t
	}
	if ext == ".pdf" {
		return "application/pdf"
	}
	if textExtensions[ext] {
		return mimeText
	}
	return mimeBinary
}

// IsPreviewableMimeType reports whether the preview pane can show content of
// this type.
func IsPreviewableMimeType(mimeType string) bool {
	switch mimeType {
	case mimeText, "application/pdf":
		return true
	}
	for _, t := range imageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// IsTextFile reports whether path holds text, by extension first and by
// sniffing the first bytes otherwise. Unreadable files are not text.
func IsTextFile(path string) bool {
	if DetectMimeType(path) == mimeText {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	return LooksLikeText(buf[:n])
}

// LooksLikeText reports whether b is NUL-free UTF-8. Empty content counts as
// text.
func LooksLikeText(b []byte) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	// A multi-byte rune may be cut at the sniff boundary.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				b = b[:i]
			}
			break
		}
	}
	return utf8.Valid(b)
}

// Upload is a local file ready to be sent to an artifact store.
type Upload struct {
	Filename string
	MimeType string
	Content  []byte
}

// ReadUpload reads a local file for upload.
func ReadUpload(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("reading %s: is a directory", path)
	}
	if info.Size() > MaxUploadSize {
		return Upload{}, fmt.Errorf("reading %s: file is larger than %d bytes", path, MaxUploadSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := DetectMimeType(path)
	if mimeType == mimeBinary && LooksLikeText(content) {
		mimeType = mimeText
	}
	return Upload{
		Filename: filepath.Base(path),
		MimeType: mimeType,
		Content:  content,
	}, nil
}
