package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	mcNamespace   = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// maxDocumentPartSize caps the decompressed size of word/document.xml.
var maxDocumentPartSize int64 = 128 << 20

var (
	errNoDocumentPart   = errors.New("docx: word/document.xml not found")
	errDocumentTooLarge = errors.New("docx: word/document.xml exceeds size limit")
)

// extractDOCX returns the paragraphs of the main document part joined by newlines.
func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	var docFile *zip.File
	for _, f := range r.File {
		if strings.EqualFold(f.Name, "word/document.xml") {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errNoDocumentPart
	}
	if docFile.UncompressedSize64 > uint64(maxDocumentPartSize) {
		return "", errDocumentTooLarge
	}
	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	defer rc.Close()

	// The zip header size is not trusted; the stream is capped as well.
	paragraphs, err := readParagraphs(&capReader{r: rc, n: maxDocumentPartSize})
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs walks WordprocessingML tokens and collects the text of every
// w:p element in document order. Elements from other namespaces (drawings,
// math, custom XML) only contribute text through their nested w:t runs. The
// Fallback branch of mc:AlternateContent and text box content are skipped.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		open       []*strings.Builder
	)
	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == mcNamespace && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "txbxContent":
				// Text boxes are floating shapes, not body paragraphs.
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, err
				}
				if b := current(); b != nil {
					b.WriteString(text)
				}
			case "tab":
				if b := current(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space == wordNamespace && t.Name.Local == "p" && len(open) > 0 {
				paragraphs = append(paragraphs, current().String())
				open = open[:len(open)-1]
			}
		}
	}
	return paragraphs, nil
}

// capReader fails with errDocumentTooLarge once more than n bytes have been read.
type capReader struct {
	r io.Reader
	n int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.n < 0 {
		return 0, errDocumentTooLarge
	}
	if int64(len(p)) > c.n+1 {
		p = p[:c.n+1]
	}
	n, err := c.r.Read(p)
	c.n -= int64(n)
	if c.n < 0 {
		return n, errDocumentTooLarge
	}
	return n, err
}
