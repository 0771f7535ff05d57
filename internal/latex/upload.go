package latex

import (
	"fmt"
	"strings"

	"resumetex/internal/errors"
	"resumetex/internal/utils"

	"github.com/gabriel-vasile/mimetype"
)

// UploadKind tells how an uploaded file is compiled
type UploadKind int

const (
	UploadSource UploadKind = iota
	UploadArchive
)

// ClassifyUpload checks an uploaded file's name, size and content and
// reports whether it is a LaTeX source or a pre-built archive.
func ClassifyUpload(fileName string, data []byte, maxSize int64) (UploadKind, error) {
	if int64(len(data)) > maxSize {
		return 0, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte upload limit", maxSize), nil)
	}
	if len(data) == 0 {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest, "uploaded file is empty", nil)
	}

	lower := strings.ToLower(fileName)
	detected := mimetype.Detect(data)

	if strings.HasSuffix(lower, ".tex") {
		if !isText(detected) {
			return 0, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
				fmt.Sprintf("a .tex upload must be text, got %s", detected.String()), nil)
		}
		return UploadSource, nil
	}

	if utils.IsArchive(fileName) {
		if !detected.Is("application/x-bzip2") && !detected.Is("application/x-tar") {
			return 0, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
				fmt.Sprintf("archive content is %s, expected tar or bzip2", detected.String()), nil)
		}
		return UploadArchive, nil
	}

	return 0, errors.NewValidationError(errors.ErrCodeUnsupportedFile,
		"only .tex, .tar, .tar.bz2, .tbz2 and .tbz uploads are accepted", nil)
}

// isText reports whether m is text/plain or one of its more specific children.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
