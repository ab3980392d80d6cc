package inspect

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFInspector rejects uploads that cannot be parsed as PDF documents
// before a remote masking call is spent on them.
type PDFInspector struct{}

func NewPDFInspector() *PDFInspector {
	return &PDFInspector{}
}

func (i *PDFInspector) ValidatePDF(content []byte) error {
	if len(content) == 0 {
		return errors.New("empty file")
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("parse pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}
