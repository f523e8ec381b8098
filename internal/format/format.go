// Package format holds the display helpers the presentation layer binds to.
package format

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

const fileScheme = "file://"

// Duration formats milliseconds as m:ss, or h:mm:ss once an hour is reached.
// Hours wrap at 24; non-positive input gives "0:00".
func Duration(milliseconds int64) string {
	if milliseconds <= 0 {
		return "0:00"
	}

	seconds := (milliseconds / 1000) % 60
	minutes := (milliseconds / (1000 * 60)) % 60
	hours := (milliseconds / (1000 * 60 * 60)) % 24

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FileName returns the last path segment of a path or file URL.
// Both separators are honoured regardless of platform.
func FileName(ref string) string {
	if ref == "" {
		return ""
	}
	p := strings.TrimPrefix(ref, fileScheme)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// LocalPath converts a file URL to a filesystem path. Plain paths are returned unchanged.
func LocalPath(ref string) string {
	if !strings.HasPrefix(ref, fileScheme) {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return strings.TrimPrefix(ref, fileScheme)
	}
	p := u.Path
	// file:///C:/x on Windows
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

// FileURL returns the file URL of path, made absolute first
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// FileSize returns the size in bytes of a path or file URL, 0 if it cannot be read
func FileSize(ref string) int64 {
	info, err := os.Stat(LocalPath(ref))
	if err != nil {
		return 0
	}
	return info.Size()
}

// Size formats a byte count with IEC units, e.g. "1.5 KiB"
func Size(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}
