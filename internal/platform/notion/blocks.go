package notion

import (
	"strings"
	"unicode/utf8"

	"github.com/jomei/notionapi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxRichTextLength is Notion's limit for a single rich text object.
const maxRichTextLength = 2000

// plainTextLanguage is Notion's name for an untagged code block.
const plainTextLanguage = "plain text"

var markdown = goldmark.New()

// style is the inline formatting carried by a run of text.
type style struct {
	bold, italic, code bool
}

type span struct {
	text  string
	style style
}

// markdownToBlocks parses a Markdown document and converts its top level
// nodes into Notion blocks. Nested list content is flattened after its item.
func markdownToBlocks(src string) []notionapi.Block {
	source := []byte(src)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []notionapi.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = appendBlocks(blocks, n, source)
	}
	return blocks
}

func appendBlocks(blocks []notionapi.Block, n ast.Node, source []byte) []notionapi.Block {
	switch node := n.(type) {
	case *ast.Heading:
		return append(blocks, headingBlock(node.Level, inlineRichText(node, source)))
	case *ast.Paragraph, *ast.TextBlock:
		return append(blocks, paragraphBlock(inlineRichText(node, source)))
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			blocks = appendListItem(blocks, item, node.IsOrdered(), source)
		}
		return blocks
	case *ast.FencedCodeBlock:
		return append(blocks, codeBlock(linesText(node, source), string(node.Language(source))))
	case *ast.CodeBlock:
		return append(blocks, codeBlock(linesText(node, source), ""))
	case *ast.Blockquote:
		var rt []notionapi.RichText
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if len(rt) > 0 {
				rt = append(rt, richTextFor(span{text: "\n"})...)
			}
			rt = append(rt, inlineRichText(c, source)...)
		}
		return append(blocks, quoteBlock(rt))
	case *ast.ThematicBreak:
		return append(blocks, dividerBlock())
	case *ast.HTMLBlock:
		return append(blocks, paragraphBlock(splitRichText(linesText(node, source))))
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = appendBlocks(blocks, c, source)
		}
		return blocks
	}
}

// appendListItem emits the item's first paragraph as the list block and any
// further children (nested lists, code) as following blocks.
func appendListItem(blocks []notionapi.Block, item ast.Node, ordered bool, source []byte) []notionapi.Block {
	var rt []notionapi.RichText
	rest := item.FirstChild()
	switch rest.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		rt = inlineRichText(rest, source)
		rest = rest.NextSibling()
	}
	if rt == nil {
		rt = []notionapi.RichText{}
	}

	if ordered {
		blocks = append(blocks, &notionapi.NumberedListItemBlock{
			BasicBlock:       basicBlock(notionapi.BlockTypeNumberedListItem),
			NumberedListItem: notionapi.ListItem{RichText: rt},
		})
	} else {
		blocks = append(blocks, &notionapi.BulletedListItemBlock{
			BasicBlock:       basicBlock(notionapi.BlockTypeBulletedListItem),
			BulletedListItem: notionapi.ListItem{RichText: rt},
		})
	}

	for ; rest != nil; rest = rest.NextSibling() {
		blocks = appendBlocks(blocks, rest, source)
	}
	return blocks
}

// inlineRichText flattens the inline children of n into rich text, merging
// neighbouring runs that share a style.
func inlineRichText(n ast.Node, source []byte) []notionapi.RichText {
	var spans []span
	collectSpans(n, style{}, source, &spans)

	var merged []span
	for _, s := range spans {
		if s.text == "" {
			continue
		}
		if last := len(merged) - 1; last >= 0 && merged[last].style == s.style {
			merged[last].text += s.text
			continue
		}
		merged = append(merged, s)
	}

	out := []notionapi.RichText{}
	for _, s := range merged {
		out = append(out, richTextFor(s)...)
	}
	return out
}

func collectSpans(n ast.Node, st style, source []byte, out *[]span) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			*out = append(*out, span{text: string(node.Segment.Value(source)), style: st})
			switch {
			case node.HardLineBreak():
				*out = append(*out, span{text: "\n", style: st})
			case node.SoftLineBreak():
				*out = append(*out, span{text: " ", style: st})
			}
		case *ast.String:
			*out = append(*out, span{text: string(node.Value), style: st})
		case *ast.AutoLink:
			*out = append(*out, span{text: string(node.Label(source)), style: st})
		case *ast.RawHTML:
			segs := node.Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				*out = append(*out, span{text: string(seg.Value(source)), style: st})
			}
		case *ast.Emphasis:
			inner := st
			if node.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			collectSpans(node, inner, source, out)
		case *ast.CodeSpan:
			inner := st
			inner.code = true
			collectSpans(node, inner, source, out)
		default:
			collectSpans(c, st, source, out)
		}
	}
}

func linesText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

func basicBlock(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: t}
}

func headingBlock(level int, rt []notionapi.RichText) notionapi.Block {
	heading := notionapi.Heading{RichText: rt}
	switch level {
	case 1:
		return &notionapi.Heading1Block{BasicBlock: basicBlock(notionapi.BlockTypeHeading1), Heading1: heading}
	case 2:
		return &notionapi.Heading2Block{BasicBlock: basicBlock(notionapi.BlockTypeHeading2), Heading2: heading}
	default:
		// Notion has three heading levels.
		return &notionapi.Heading3Block{BasicBlock: basicBlock(notionapi.BlockTypeHeading3), Heading3: heading}
	}
}

func paragraphBlock(rt []notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
		Paragraph:  notionapi.Paragraph{RichText: rt},
	}
}

func quoteBlock(rt []notionapi.RichText) notionapi.Block {
	return &notionapi.QuoteBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeQuote),
		Quote:      notionapi.Quote{RichText: rt},
	}
}

func dividerBlock() notionapi.Block {
	return &notionapi.DividerBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeDivider),
		Divider:    notionapi.Divider{},
	}
}

func codeBlock(code, language string) notionapi.Block {
	if language == "" {
		language = plainTextLanguage
	}
	return &notionapi.CodeBlock{
		BasicBlock: basicBlock(notionapi.BlockTypeCode),
		Code:       notionapi.Code{RichText: splitRichText(code), Language: language},
	}
}

// richTextFor converts one styled run, splitting it at the length limit.
func richTextFor(s span) []notionapi.RichText {
	parts := splitRichText(s.text)
	if s.style == (style{}) {
		return parts
	}
	for i := range parts {
		parts[i].Annotations = &notionapi.Annotations{
			Bold:   s.style.bold,
			Italic: s.style.italic,
			Code:   s.style.code,
			Color:  notionapi.ColorDefault,
		}
	}
	return parts
}

// splitRichText cuts s into rich text objects no longer than the API limit,
// never splitting a rune.
func splitRichText(s string) []notionapi.RichText {
	out := []notionapi.RichText{}
	for s != "" {
		n := 0
		cut := len(s)
		for i := range s {
			if n == maxRichTextLength {
				cut = i
				break
			}
			n++
		}
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s[:cut]},
		})
		s = s[cut:]
	}
	return out
}

// truncateTitle keeps page titles within the rich text limit.
func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= maxRichTextLength {
		return title
	}
	return string([]rune(title)[:maxRichTextLength])
}
