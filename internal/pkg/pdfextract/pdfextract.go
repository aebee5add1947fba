package pdfextract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// Result holds the plain text pulled out of a PDF and its page count.
type Result struct {
	Text  string
	Pages int
}

// Extract reads the entire content of r and extracts plain text from the PDF.
// Text is empty (with nil error) when the PDF has no extractable text, e.g.
// scanned image-only rulebooks.
func Extract(r io.Reader) (Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}
	if len(b) == 0 {
		return Result{}, nil
	}
	readerAt := bytes.NewReader(b)
	pdfReader, err := pdf.NewReader(readerAt, int64(len(b)))
	if err != nil {
		return Result{}, err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return Result{}, err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: string(out), Pages: pdfReader.NumPage()}, nil
}

// ExtractText is a convenience wrapper returning only the text.
func ExtractText(r io.Reader) (string, error) {
	res, err := Extract(r)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
