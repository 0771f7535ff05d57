package utils

import (
	"fmt"
	"strings"
)

// Extension groups, longest suffix first where they overlap.
var (
	sourceExtensions  = []string{".tex", ".ltx"}
	archiveExtensions = []string{".tar.bz2", ".tbz2", ".tbz", ".tar"}
	textExtensions    = []string{".txt", ".md", ".markdown", ".text"}
)

func matchSuffix(filename string, suffixes []string) (string, bool) {
	lower := strings.ToLower(filename)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return suffix, true
		}
	}
	return "", false
}

// IsLaTeXSource reports whether filename names a LaTeX document
func IsLaTeXSource(filename string) bool {
	_, ok := matchSuffix(filename, sourceExtensions)
	return ok
}

// IsArchive reports whether filename names a tar or bzip2-compressed tar
func IsArchive(filename string) bool {
	_, ok := matchSuffix(filename, archiveExtensions)
	return ok
}

// IsTextFile reports whether filename is a LaTeX source or plain text such
// as a saved job description
func IsTextFile(filename string) bool {
	if IsLaTeXSource(filename) {
		return true
	}
	_, ok := matchSuffix(filename, textExtensions)
	return ok
}

// ReplaceExtension swaps a source or archive extension, e.g. resume.tar.bz2 -> resume.pdf
func ReplaceExtension(filename, ext string) string {
	if suffix, ok := matchSuffix(filename, archiveExtensions); ok {
		return filename[:len(filename)-len(suffix)] + ext
	}
	if suffix, ok := matchSuffix(filename, sourceExtensions); ok {
		return filename[:len(filename)-len(suffix)] + ext
	}
	return filename + ext
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
