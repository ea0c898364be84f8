// Package docs supplies the local reference documents the insight stage
// reads. Extraction is page-level and best-effort: a page that fails to
// extract is skipped, a file that fails to open yields empty text.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Document is one reference file with its extracted text.
type Document struct {
	Name string
	Text string
}

// Source yields the local reference documents available to a pipeline run.
type Source interface {
	List() ([]string, error)
	Read(name string) (Document, error)
}

// DirSource reads PDF files from a single directory.
type DirSource struct {
	dir    string
	logger *zap.Logger
}

func NewDirSource(dir string, logger *zap.Logger) *DirSource {
	return &DirSource{dir: dir, logger: logger}
}

// List returns the PDF file names in the directory, sorted.
func (s *DirSource) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("docs: read dir %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read extracts the full text of one document, page by page. A page whose
// extraction fails is logged and skipped rather than failing the document.
func (s *DirSource) Read(name string) (Document, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("docs: open %s: %w", name, err)
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			s.logger.Warn("skipping unreadable page",
				zap.String("file", name), zap.Int("page", i), zap.Error(err))
			continue
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	return Document{Name: name, Text: strings.Join(parts, "\n")}, nil
}
