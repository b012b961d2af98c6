// Package cv extracts plain text from uploaded CV documents.
package cv

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	extension = ".pdf"
	magic     = "%PDF"
)

// ErrInvalidFile is returned for missing, non-PDF or unreadable documents.
var ErrInvalidFile = errors.New("invalid cv file")

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// ExtractText validates the file at path and returns its normalised text content.
func ExtractText(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: file not found: %s", ErrInvalidFile, path)
	}

	if strings.ToLower(filepath.Ext(path)) != extension {
		return "", fmt.Errorf("%w: only PDF files are allowed", ErrInvalidFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	return ExtractFromBytes(data)
}

// ExtractFromBytes returns the normalised text of an in-memory PDF document.
func ExtractFromBytes(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return "", fmt.Errorf("%w: invalid PDF file format", ErrInvalidFile)
	}

	text, err := plainText(data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse PDF: %v", ErrInvalidFile, err)
	}

	return Normalize(text), nil
}

// IsValid reports whether path names an existing file with a PDF extension and header.
func IsValid(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != extension {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(magic))
	if _, err := f.Read(header); err != nil {
		return false
	}
	return string(header) == magic
}

func plainText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupted document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for index := 1; index <= reader.NumPage(); index++ {
		page := reader.Page(index)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		builder.WriteString(content)
		builder.WriteString("\n\n")
	}

	return builder.String(), nil
}

// Normalize unifies line endings, collapses runs of spaces and tabs, keeps at most one blank line
// between paragraphs and trims the result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
