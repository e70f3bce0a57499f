package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"conversational-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const defaultPageNumber = 1

// SupportedExtensions lists the extensions Load accepts.
var SupportedExtensions = []string{".txt", ".csv", ".pdf", ".md", ".xlsx"}

// IsSupported reports whether Load has a loader for path's extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads the file at path into document segments. The loader is picked
// by extension; unknown extensions fail with models.ErrUnsupportedFormat
// without touching the file.
func Load(ctx context.Context, filePath string) ([]schema.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".txt":
		return loadText(ctx, filePath)
	case ".csv":
		return loadCSV(ctx, filePath)
	case ".pdf":
		return loadPDF(filePath)
	case ".md":
		return loadMarkdown(filePath)
	case ".xlsx":
		return loadXLSX(filePath)
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}
}

func loadText(ctx context.Context, filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load text: %w", err)
	}
	return withPage(docs), nil
}

func loadCSV(ctx context.Context, filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewCSV(f).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load csv: %w", err)
	}
	return withPage(docs), nil
}

func loadPDF(filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var docs []schema.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		docs = append(docs, schema.Document{
			PageContent: pageText,
			Metadata:    map[string]any{models.MetaPage: i},
		})
	}
	return docs, nil
}

func loadMarkdown(filePath string) ([]schema.Document, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	plain, err := markdownToText(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}
	return []schema.Document{{
		PageContent: plain,
		Metadata:    map[string]any{models.MetaPage: defaultPageNumber},
	}}, nil
}

// markdownToText flattens a markdown document to its text content. Blocks are
// separated by a blank line, soft line breaks are kept.
func markdownToText(src []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && n.NextSibling() != nil {
				switch n.Parent().(type) {
				case *ast.List, *ast.ListItem:
					buf.WriteString("\n")
				default:
					buf.WriteString("\n\n")
				}
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteString("\n")
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					buf.Write(t.Segment.Value(src))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			buf.WriteString("- ")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func loadXLSX(filePath string) ([]schema.Document, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var docs []schema.Document
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		docs = append(docs, schema.Document{
			PageContent: sb.String(),
			Metadata:    map[string]any{models.MetaPage: sheetNum + 1},
		})
	}
	return docs, nil
}

// withPage numbers segments that came without a page, 1-based.
func withPage(docs []schema.Document) []schema.Document {
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]any{}
		}
		if _, ok := docs[i].Metadata[models.MetaPage]; !ok {
			docs[i].Metadata[models.MetaPage] = i + 1
		}
	}
	return docs
}
