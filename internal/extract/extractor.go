// Package extract reduces raw article HTML to a clean title and body text.
// It runs a readability-style heuristic over a parsed DOM first and falls
// back to crude tag stripping when the heuristic comes up short.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// minContentChars is the floor below which an extraction is treated as failed.
const minContentChars = 100

// Document is the extracted article: a title and plain-text body.
type Document struct {
	Title   string
	Content string
}

// noiseSelectors are elements removed before content scoring. They contribute
// chrome, not article text.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header", "aside",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".comments", ".related", ".share", ".social", ".newsletter",
}

// candidateSelectors are content containers tried in priority order.
var candidateSelectors = []string{
	"article", "main", "[role=main]",
	"#content", ".post-content", ".article-body", ".entry-content",
	"body",
}

// Extract reduces raw HTML to a title and plain-text body. It returns an
// error when neither the readability heuristic nor the crude fallback yields
// at least minContentChars of text.
func Extract(html string, rawURL string) (*Document, error) {
	if doc := heuristicExtract(html); doc != nil {
		return doc, nil
	}

	title, content := crudeExtract(html)
	if len(content) < minContentChars {
		return nil, fmt.Errorf("extracted content too short for %s (%d chars)", rawURL, len(content))
	}
	return &Document{Title: title, Content: content}, nil
}

// heuristicExtract parses the HTML and scores candidate containers by the
// amount of paragraph text they hold. Returns nil when parsing fails or the
// best candidate is under the content floor.
func heuristicExtract(html string) *Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	title := documentTitle(doc)

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var best string
	for _, sel := range candidateSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		text := containerText(container)
		if len(text) > len(best) {
			best = text
		}
	}

	if len(best) < minContentChars {
		return nil
	}
	return &Document{Title: title, Content: best}
}

// containerText joins the container's paragraph-level elements with blank
// lines so downstream chunking sees paragraph boundaries. Falls back to the
// container's whole text when it holds no <p> elements.
func containerText(container *goquery.Selection) string {
	var paragraphs []string
	container.Find("p, h1, h2, h3, h4, blockquote, li").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpaces(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return collapseSpaces(container.Text())
}

func documentTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title := collapseSpaces(og); title != "" {
			return title
		}
	}
	if title := collapseSpaces(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapseSpaces(doc.Find("h1").First().Text())
}

var (
	blockedElementsRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</\s*(?:script|style|noscript)\s*>`)
	commentRe         = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBreakRe      = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote|tr|section|article)>|<br\s*/?>`)
	tagRe             = regexp.MustCompile(`<[^>]*>`)
	titleTagRe        = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	spaceRunRe        = regexp.MustCompile(`[ \t]+`)
	newlineRunRe      = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	"&mdash;", "-",
	"&ndash;", "-",
)

// crudeExtract is the last-resort extractor: strip script/style/noscript
// blocks, turn block-element closers into paragraph breaks, drop the
// remaining tags, decode a small entity set, and collapse whitespace.
func crudeExtract(html string) (title string, content string) {
	if m := titleTagRe.FindStringSubmatch(html); len(m) == 2 {
		title = collapseSpaces(entityReplacer.Replace(m[1]))
	}

	text := blockedElementsRe.ReplaceAllString(html, " ")
	text = commentRe.ReplaceAllString(text, " ")
	text = blockBreakRe.ReplaceAllString(text, "\n\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = collapseSpaces(line)
	}
	content = strings.TrimSpace(newlineRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
	return title, content
}

// Title pulls the raw document title out of the HTML without a full parse.
func Title(html string) string {
	if m := titleTagRe.FindStringSubmatch(html); len(m) == 2 {
		return collapseSpaces(entityReplacer.Replace(m[1]))
	}
	return ""
}

// StripNoise removes script/style/noscript blocks and comments but keeps the
// remaining markup. Used when a site strategy hands raw HTML to the
// translator for model-side extraction.
func StripNoise(html string) string {
	text := blockedElementsRe.ReplaceAllString(html, " ")
	text = commentRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " "))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}
