package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
)

// parseFunc converts a local file into zero or more raw documents. Parsers
// may fail on corrupt input; the loader turns that into a per-source outcome.
type parseFunc func(path string) ([]RawDocument, error)

// parserFor resolves the closed set of supported formats to their parser.
// FormatUnknown returns nil so callers can skip the source.
func parserFor(format DocumentFormat) parseFunc {
	switch format {
	case FormatPDF:
		return parsePDF
	case FormatDocx:
		return parseDocx
	case FormatCSV:
		return parseCSV
	case FormatHTML:
		return parseHTML
	case FormatText:
		return parseText
	default:
		return nil
	}
}

func parseText(path string) ([]RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return []RawDocument{{
		Content:  normalizePlainText(string(data)),
		Metadata: map[string]string{MetaSource: path, MetaFilePath: path},
	}}, nil
}

func parsePDF(path string) ([]RawDocument, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	content := normalizePlainText(buf.String())
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	return []RawDocument{{
		Content:  content,
		Metadata: map[string]string{MetaSource: path, MetaFilePath: path},
	}}, nil
}

// parseDocx extracts paragraph text from the word/document.xml entry of the
// OOXML archive. Legacy binary .doc files fail here with a zip error, which
// the loader reports as a per-source failure.
func parseDocx(path string) ([]RawDocument, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	defer archive.Close()

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return nil, fmt.Errorf("docx archive missing word/document.xml")
	}

	rc, err := document.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	content, err := extractDocxText(rc)
	if err != nil {
		return nil, fmt.Errorf("decode document.xml: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	return []RawDocument{{
		Content:  content,
		Metadata: map[string]string{MetaSource: path, MetaFilePath: path},
	}}, nil
}

func extractDocxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	builder := &strings.Builder{}
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "t":
				inText = true
			case "tab":
				builder.WriteString("\t")
			case "br":
				builder.WriteString("\n")
			}
		case xml.EndElement:
			switch elem.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(elem)
			}
		}
	}

	return normalizePlainText(builder.String()), nil
}

// parseCSV emits one document per data row, each rendered as "header: value"
// lines so row fields stay searchable as prose.
func parseCSV(path string) ([]RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	docs := make([]RawDocument, 0, len(records)-1)
	for idx, row := range records[1:] {
		docs = append(docs, RawDocument{
			Content: formatCSVRow(headers, row),
			Metadata: map[string]string{
				MetaSource:   path,
				MetaFilePath: path,
				MetaRow:      fmt.Sprintf("%d", idx+1),
			},
		})
	}

	return docs, nil
}

func formatCSVRow(headers, row []string) string {
	builder := &strings.Builder{}

	limit := len(headers)
	if len(row) < limit {
		limit = len(row)
	}

	for i := 0; i < limit; i++ {
		header := strings.TrimSpace(headers[i])
		if header == "" {
			header = fmt.Sprintf("Column %d", i+1)
		}
		builder.WriteString(header)
		builder.WriteString(": ")
		builder.WriteString(strings.TrimSpace(row[i]))
		if i < limit-1 {
			builder.WriteString("\n")
		}
	}

	// Values beyond the header count keep positional names.
	for i := len(headers); i < len(row); i++ {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Column %d: %s", i+1, strings.TrimSpace(row[i])))
	}

	return builder.String()
}

func parseHTML(path string) ([]RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	content := extractHTMLText(doc)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	metadata := map[string]string{MetaSource: path, MetaFilePath: path}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		metadata[MetaTitle] = title
	}

	return []RawDocument{{Content: content, Metadata: metadata}}, nil
}

func extractHTMLText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	text := root.Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	// Collapse the whitespace runs goquery leaves behind between elements
	// while keeping paragraph breaks.
	lines := strings.Split(normalizePlainText(text), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
