package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/foliochat/folio/internal/catalog"
)

// loadProfile summarizes a social profile page: display name, bio and
// description metadata. Profiles are summarized, never mirrored.
func (l *Loader) loadProfile(ctx context.Context, res catalog.Resource) (Document, error) {
	doc, err := l.fetchHTML(ctx, res)
	if err != nil {
		return Document{}, err
	}

	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
		res.Title,
	)
	description := firstNonEmpty(
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[property="og:description"]`),
	)
	name := strings.TrimSpace(doc.Find(".p-name, [itemprop=name], h1").First().Text())
	bio := strings.TrimSpace(doc.Find(".p-note, [itemprop=description]").First().Text())

	if firstNonEmpty(name, bio, description, res.Description) == "" {
		return Document{}, extractionErr(res.ID, "no profile content found at %s", res.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Profile: %s\n", res.Location)
	if name != "" {
		fmt.Fprintf(&b, "Name: %s\n", name)
	}
	if bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", bio)
	}
	if description != "" {
		fmt.Fprintf(&b, "About: %s\n", description)
	}
	if res.Description != "" {
		fmt.Fprintf(&b, "%s\n", res.Description)
	}

	return l.remoteDocument(res, title, b.String())
}

// loadRepository summarizes a code repository page: name, about line and
// a bounded slice of the rendered README.
func (l *Loader) loadRepository(ctx context.Context, res catalog.Resource) (Document, error) {
	doc, err := l.fetchHTML(ctx, res)
	if err != nil {
		return Document{}, err
	}

	name := strings.TrimSpace(doc.Find(`strong[itemprop="name"]`).First().Text())
	about := strings.TrimSpace(doc.Find(`p[itemprop="about"]`).First().Text())
	readme := strings.TrimSpace(doc.Find("article.markdown-body").First().Text())

	title := res.Title
	if name != "" {
		title = "Repository: " + name
	}

	if firstNonEmpty(name, about, readme, res.Description) == "" {
		return Document{}, extractionErr(res.ID, "no repository content found at %s", res.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", res.Location)
	if name != "" {
		fmt.Fprintf(&b, "Name: %s\n", name)
	}
	if about != "" {
		fmt.Fprintf(&b, "Description: %s\n", about)
	}
	if readme != "" {
		fmt.Fprintf(&b, "README: %s\n", truncate(cleanText(readme), maxSummaryBytes))
	}
	if res.Description != "" {
		fmt.Fprintf(&b, "%s\n", res.Description)
	}

	return l.remoteDocument(res, title, b.String())
}

// loadArticle extracts an article's title and a bounded readable body
// via go-readability.
func (l *Loader) loadArticle(ctx context.Context, res catalog.Resource) (Document, error) {
	body, err := l.fetcher.Get(ctx, res.Location)
	if err != nil {
		return Document{}, extractionErr(res.ID, "%v", err)
	}

	pageURL, err := url.Parse(res.Location)
	if err != nil {
		return Document{}, extractionErr(res.ID, "parsing URL: %v", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return Document{}, extractionErr(res.ID, "extracting readable content: %v", err)
	}

	title := firstNonEmpty(article.Title, res.Title)

	if cleanText(article.TextContent) == "" && article.Excerpt == "" {
		return Document{}, extractionErr(res.ID, "no readable content found at %s", res.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Article: %s\n", res.Location)
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if article.Byline != "" {
		fmt.Fprintf(&b, "Author: %s\n", article.Byline)
	}
	if article.Excerpt != "" {
		fmt.Fprintf(&b, "Summary: %s\n", article.Excerpt)
	}
	if article.TextContent != "" {
		fmt.Fprintf(&b, "%s\n", truncate(cleanText(article.TextContent), maxSummaryBytes))
	}

	return l.remoteDocument(res, title, b.String())
}

// loadPaper summarizes a research paper landing page: title plus
// abstract when the page exposes one.
func (l *Loader) loadPaper(ctx context.Context, res catalog.Resource) (Document, error) {
	doc, err := l.fetchHTML(ctx, res)
	if err != nil {
		return Document{}, err
	}

	title := firstNonEmpty(
		metaContent(doc, `meta[name="citation_title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
		res.Title,
	)
	abstract := strings.TrimSpace(doc.Find("div.abstract, p.abstract, blockquote.abstract, [name=abstract]").First().Text())

	if firstNonEmpty(title, abstract, res.Description) == "" {
		return Document{}, extractionErr(res.ID, "no paper content found at %s", res.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Paper: %s\n", res.Location)
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if abstract != "" {
		fmt.Fprintf(&b, "Abstract: %s\n", truncate(cleanText(abstract), maxSummaryBytes))
	} else if res.Description != "" {
		fmt.Fprintf(&b, "%s\n", res.Description)
	}

	return l.remoteDocument(res, title, b.String())
}

// fetchHTML fetches a remote resource and parses it with goquery.
func (l *Loader) fetchHTML(ctx context.Context, res catalog.Resource) (*goquery.Document, error) {
	body, err := l.fetcher.Get(ctx, res.Location)
	if err != nil {
		return nil, extractionErr(res.ID, "%v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, extractionErr(res.ID, "parsing HTML: %v", err)
	}
	return doc, nil
}

// remoteDocument assembles the normalized document for a fetched
// resource, rejecting summaries that carry no usable text.
func (l *Loader) remoteDocument(res catalog.Resource, title, text string) (Document, error) {
	text = cleanText(text)
	if text == "" {
		return Document{}, extractionErr(res.ID, "no text extracted from %s", res.Location)
	}
	if title == "" {
		title = res.ID
	}

	return Document{
		ResourceID: res.ID,
		Text:       text,
		SourceType: string(res.Type),
		Source:     res.Location,
		Title:      title,
	}, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
