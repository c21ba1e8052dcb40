// Package ingest splits markdown posts into chunks for the local knowledge base.
package ingest

import (
	"bytes"

	"ragkb"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chunk is a piece of a post that is embedded on its own.
type Chunk struct {
	Text string
}

// Parse splits markdown into chunks: paragraphs, lists and fenced code blocks.
// A paragraph right after a level 1 or 2 heading starts with the heading text.
func Parse(source []byte) []Chunk {
	log := ragkb.Logger
	_, body := SplitFrontMatter(source)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(body))

	chunks := make([]Chunk, 0)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		log.Debug("Node", "kind", n.Kind().String())
		switch n := n.(type) {
		case *ast.Paragraph:
			paragraph := inlineText(n, body)
			if heading, ok := n.PreviousSibling().(*ast.Heading); ok && heading.Level <= 2 {
				paragraph = inlineText(heading, body) + "\n" + paragraph
			}
			chunks = append(chunks, Chunk{Text: paragraph + "\n"})
		case *ast.List:
			chunks = append(chunks, Chunk{Text: listText(n, body)})
		case *ast.FencedCodeBlock:
			chunks = append(chunks, Chunk{Text: codeText(n, body)})
		}
	}
	return chunks
}

// SplitFrontMatter separates a leading YAML block delimited by --- lines.
func SplitFrontMatter(source []byte) (meta []byte, body []byte) {
	const delim = "---"
	if !bytes.HasPrefix(source, []byte(delim+"\n")) {
		return nil, source
	}
	rest := source[len(delim)+1:]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, source
	}
	meta = rest[:end+1]
	body = rest[end+1+len(delim):]
	return meta, bytes.TrimLeft(body, "\r\n")
}

func inlineText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for c := t.FirstChild(); c != nil; c = c.NextSibling() {
				if s, ok := c.(*ast.Text); ok {
					buf.Write(s.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func listText(list *ast.List, source []byte) string {
	var buf bytes.Buffer
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		buf.WriteString(" - ")
		buf.WriteString(inlineText(item, source))
	}
	return buf.String()
}

func codeText(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}
