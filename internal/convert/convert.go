// Package convert turns external documents into markdown suitable for the
// vault.
package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dslipak/pdf"
)

// maxFileSize caps text extraction at 50MB.
const maxFileSize = 50 * 1024 * 1024

// SupportedExtensions lists the document types ToMarkdown can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// ToMarkdown extracts the text content of a document as markdown.
// Markdown and plain text pass through unchanged.
func ToMarkdown(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("convert: stat %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return "", fmt.Errorf("convert: %s exceeds size limit of 50MB", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("convert: read %s: %w", path, err)
		}
		return string(raw), nil
	case ".pdf":
		return fromPDF(path)
	case ".docx":
		return fromDOCX(path)
	default:
		return "", fmt.Errorf("convert: unsupported file type %s", filepath.Ext(path))
	}
}

func fromPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("convert: open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("convert: read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("convert: read pdf text: %w", err)
	}
	return buf.String(), nil
}

// fromDOCX unzips the document and strips word/document.xml down to its
// character data. Paragraph and tab elements become newlines and tabs.
func fromDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("convert: open docx: %w", err)
	}
	defer r.Close()

	var documentXML *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			documentXML = f
			break
		}
	}
	if documentXML == nil {
		return "", fmt.Errorf("convert: invalid docx: missing word/document.xml")
	}

	rc, err := documentXML.Open()
	if err != nil {
		return "", fmt.Errorf("convert: open docx content: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("convert: parse docx xml: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text.WriteString("\n")
			case "tab":
				text.WriteString("\t")
			}
		case xml.CharData:
			text.Write(t)
		}
	}
	return text.String(), nil
}
