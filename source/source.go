// Package source loads plain-text documents from disk and prepares them for
// indexing.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docseek/core"
)

// Extension is the suffix of files picked up by LoadDirectory.
const Extension = ".txt"

// PreviewLength is the default number of characters kept by Preview.
const PreviewLength = 150

var (
	// ErrNotDirectory is returned when the document path is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNoDocuments is returned when a directory holds no text files.
	ErrNoDocuments = errors.New("no .txt files found")
)

var (
	htmlTag    = regexp.MustCompile(`<.*?>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// CleanText lowercases text, strips HTML tags and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = htmlTag.ReplaceAllString(text, "")
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Preview returns the first maxLength characters of text followed by "...",
// or text unchanged when it is short enough.
func Preview(text string, maxLength int) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxLength]) + "..."
}

// NewDocument builds a Document from a file path and its raw contents.
// The ID is the file name without its extension.
func NewDocument(path, raw string) core.Document {
	name := filepath.Base(path)
	content := CleanText(raw)
	return core.Document{
		ID:         strings.TrimSuffix(name, filepath.Ext(name)),
		Filename:   name,
		Path:       path,
		RawContent: raw,
		Content:    content,
		Length:     utf8.RuneCountInString(content),
		RawLength:  utf8.RuneCountInString(raw),
	}
}

// textFiles returns every .txt file under dir, sorted by path.
func textFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// ValidateDirectory checks that dir exists, is a directory and holds at
// least one text file. It returns the number of text files found.
func ValidateDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("document directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("document directory %s: %w", dir, ErrNotDirectory)
	}
	paths, err := textFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("document directory %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("document directory %s: %w", dir, ErrNoDocuments)
	}
	return len(paths), nil
}

// LoadDirectory reads every .txt file below dir in path order.
// Unreadable files are skipped with a warning. Two files with the same stem
// in different subdirectories would share an ID; the later one is skipped.
func LoadDirectory(ctx context.Context, dir string) ([]core.Document, error) {
	if _, err := ValidateDirectory(dir); err != nil {
		return nil, err
	}
	paths, err := textFiles(dir)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "source")
	docs := make([]core.Document, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable document", "path", path, "err", err)
			continue
		}
		doc := NewDocument(path, strings.ToValidUTF8(string(data), ""))
		if prev, dup := seen[doc.ID]; dup {
			logger.Warn("skipping document with duplicate id", "doc_id", doc.ID, "path", path, "kept", prev)
			continue
		}
		seen[doc.ID] = path
		docs = append(docs, doc)
	}
	logger.Info("loaded documents", "count", len(docs), "dir", dir)
	return docs, nil
}
