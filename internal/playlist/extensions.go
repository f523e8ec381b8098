package playlist

import (
	"path/filepath"
	"strings"
)

// supportedExtensions is shared by directory scans and single-file checks
var supportedExtensions = map[string]struct{}{
	// video containers
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {},
	".webm": {}, ".m4v": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {}, ".ts": {},
	// audio containers
	".mp3": {}, ".wav": {}, ".flac": {}, ".ogg": {}, ".oga": {}, ".opus": {},
	".m4a": {}, ".aac": {}, ".wma": {}, ".aiff": {}, ".aif": {}, ".ape": {},
	".alac": {},
}

// IsSupported reports whether path has a supported media extension (case-insensitive)
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
