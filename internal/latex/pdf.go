package latex

import (
	"bytes"
	"strings"
)

var pdfMagic = []byte("%PDF")

// IsPDF classifies a compilation response. The service mislabels content
// types, so the body signature is checked first.
func IsPDF(contentType string, body []byte) bool {
	if bytes.HasPrefix(body, pdfMagic) {
		return true
	}
	return len(body) > 0 && strings.Contains(strings.ToLower(contentType), "application/pdf")
}
