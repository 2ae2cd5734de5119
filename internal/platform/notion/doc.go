// Package notion publishes content pages to a Notion workspace with the
// notionapi client. Markdown is parsed with goldmark and its block nodes are
// converted to headings, list items, code, quotes, dividers and paragraphs,
// keeping bold, italic and inline code as rich text annotations.
package notion
