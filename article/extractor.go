package article

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
)

// Extraction formats accepted by NewExtractor.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Extractor turns a page's HTML into the plain content that gets chunked.
type Extractor interface {
	Extract(ctx context.Context, page string) (string, error)
}

// NewExtractor returns the extractor for format. An empty format means
// FormatText.
func NewExtractor(format string) (Extractor, error) {
	switch format {
	case "", FormatText:
		return NewTextExtractor(), nil
	case FormatMarkdown:
		return NewMarkdownExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// noiseSelector matches elements whose text never belongs to the article.
const noiseSelector = "script, style, noscript, template, head"

var (
	blankLines  = regexp.MustCompile(`\n{3,}`)
	inlineSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// TextExtractor returns the visible text of the page body, the same text a
// browser would show with all markup removed.
type TextExtractor struct{}

// NewTextExtractor creates a TextExtractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract strips non-content elements and loads the remaining body text
// through the langchaingo HTML loader.
func (e *TextExtractor) Extract(ctx context.Context, page string) (string, error) {
	if strings.TrimSpace(page) == "" {
		return "", ErrEmptyHTML
	}

	cleaned, err := stripNoise(page)
	if err != nil {
		return "", err
	}

	docs, err := documentloaders.NewHTML(strings.NewReader(cleaned)).Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading html: %w", err)
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.PageContent)
	}

	// The loader sanitizes its output, which escapes entities again
	return normalizeText(html.UnescapeString(sb.String())), nil
}

// MarkdownExtractor converts the page body to Markdown, which keeps
// paragraph boundaries for the splitter.
type MarkdownExtractor struct {
	conv *converter.Converter
}

// NewMarkdownExtractor creates a MarkdownExtractor.
func NewMarkdownExtractor() *MarkdownExtractor {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &MarkdownExtractor{conv: conv}
}

// Extract transforms the page into Markdown.
func (e *MarkdownExtractor) Extract(_ context.Context, page string) (string, error) {
	if strings.TrimSpace(page) == "" {
		return "", ErrEmptyHTML
	}

	cleaned, err := stripNoise(page)
	if err != nil {
		return "", err
	}

	md, err := e.conv.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("converting html: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Title returns the page's <title>, or its first <h1> when the title is
// missing. Returns "" when neither exists.
func Title(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapse(doc.Find("h1").First().Text())
}

func stripNoise(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return out, nil
}

// normalizeText collapses runs of spaces inside lines, trims each line and
// keeps at most one blank line between paragraphs.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
