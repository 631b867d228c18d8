// Package ingest extracts analyzable text from EPUB files.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
)

// Book is the text source for one analysis session: extracted UTF-8
// text plus the metadata used to derive the cache directory name.
type Book struct {
	Title  string
	Author string
	Text   []byte
}

// TotalBytes returns the length of the extracted text.
func (b *Book) TotalBytes() int {
	return len(b.Text)
}

// OpenEPUB opens an EPUB file and extracts its spine text in reading
// order. Script and style content is dropped; unreadable spine items
// are skipped rather than failing the whole book.
func OpenEPUB(path string) (*Book, error) {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}
	rootfile := rc.Rootfiles[0]

	var out strings.Builder
	for _, ref := range rootfile.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		text := ExtractText(string(data))
		if text == "" {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}

	return &Book{
		Title:  strings.TrimSpace(rootfile.Title),
		Author: strings.TrimSpace(rootfile.Creator),
		Text:   []byte(out.String()),
	}, nil
}

// ExtractText returns the visible text of an XHTML document.
func ExtractText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				out.WriteString(t)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(out.String())
}
