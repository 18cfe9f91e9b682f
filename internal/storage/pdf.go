package storage

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNotPDF = errors.New("file bukan PDF yang valid")

// ValidatePDF sniffs the content type and lets pdfcpu parse the document.
// It returns the page count of a readable PDF.
func ValidatePDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrNotPDF
	}
	if ct := http.DetectContentType(data); ct != "application/pdf" {
		return 0, fmt.Errorf("%w: terdeteksi %s", ErrNotPDF, ct)
	}

	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return count, nil
}
