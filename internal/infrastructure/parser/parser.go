// Package parser extracts plain text from uploaded resume files.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse dispatches on the declared mime type, falling back to the filename
// extension when the caller does not know the type (pre-uploaded objects).
func (p *Parser) Parse(_ context.Context, data []byte, mimeType, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %s", filename)
	}

	switch resolveKind(mimeType, filename) {
	case kindPlainText:
		return extractPlainText(data, filename)
	case kindPDF:
		return extractPDFText(data)
	case kindDocx:
		return extractDocxText(data)
	case kindXlsx:
		return extractXlsxText(data)
	default:
		return "", fmt.Errorf("unsupported file type: mime=%q filename=%q", mimeType, filename)
	}
}

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPlainText
	kindPDF
	kindDocx
	kindXlsx
)

func resolveKind(mimeType, filename string) fileKind {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}

	switch mime {
	case "text/plain", "text/markdown":
		return kindPlainText
	case "application/pdf":
		return kindPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return kindDocx
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return kindXlsx
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return kindPlainText
	case ".pdf":
		return kindPDF
	case ".docx":
		return kindDocx
	case ".xlsx":
		return kindXlsx
	}
	return kindUnknown
}

func extractPlainText(data []byte, filename string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid utf-8 text: %s", filename)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("file contains no text: %s", filename)
	}
	return text, nil
}
