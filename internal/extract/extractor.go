// Package extract parses listing and detail pages into raw postings with
// goquery. Selectors are data (see Rules); a malformed card is dropped, never
// fatal.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// DefaultMaxSummaryRunes bounds detail summaries.
const DefaultMaxSummaryRunes = 1000

// Extractor implements crawler.Extractor.
type Extractor struct {
	rules           Rules
	base            *url.URL
	maxSummaryRunes int
	logger          *zap.Logger
}

// NewExtractor builds an Extractor resolving relative links against baseURL.
func NewExtractor(rules Rules, baseURL string, maxSummaryRunes int, logger *zap.Logger) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if maxSummaryRunes <= 0 {
		maxSummaryRunes = DefaultMaxSummaryRunes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		rules:           rules.WithDefaults(),
		base:            base,
		maxSummaryRunes: maxSummaryRunes,
		logger:          logger.Named("extract"),
	}, nil
}

// Extract returns every card on a listing page that yielded a title and a
// company. Cards missing either are counted in Dropped.
func (e *Extractor) Extract(page crawler.Page) crawler.ExtractResult {
	var res crawler.ExtractResult
	doc, ok := e.document(page)
	if !ok {
		return res
	}

	cards := firstSelection(doc.Selection, e.rules.Cards)
	res.Cards = cards.Length()
	cards.Each(func(i int, card *goquery.Selection) {
		raw, err := e.card(card)
		if err != nil {
			res.Dropped++
			e.logger.Debug("card dropped", zap.String("url", page.URL), zap.Int("index", i), zap.Error(err))
			return
		}
		res.Postings = append(res.Postings, raw)
	})
	return res
}

// Summary returns the page's meta description, whitespace-collapsed and
// truncated; "" when none exists.
func (e *Extractor) Summary(page crawler.Page) string {
	doc, ok := e.document(page)
	if !ok {
		return ""
	}
	for _, sel := range e.rules.SummaryMeta {
		content, _ := doc.Find(sel).First().Attr("content")
		if text := collapse(content); text != "" {
			return truncateRunes(text, e.maxSummaryRunes)
		}
	}
	return ""
}

func (e *Extractor) document(page crawler.Page) (*goquery.Document, bool) {
	if len(bytes.TrimSpace(page.Body)) == 0 {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(decodeBody(page.Body, page.ContentType))
	if err != nil {
		e.logger.Warn("parse document failed", zap.String("url", page.URL), zap.Error(err))
		return nil, false
	}
	return doc, true
}

func (e *Extractor) card(card *goquery.Selection) (raw crawler.RawPosting, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed card: %v", r)
		}
	}()

	titleSel := firstSelection(card, e.rules.Title)
	raw.Title = text(titleSel)
	if raw.Title == "" {
		raw.Title = strings.TrimSpace(titleSel.AttrOr("title", ""))
	}
	raw.Company = firstText(card, e.rules.Company)
	if raw.Title == "" || raw.Company == "" {
		return crawler.RawPosting{}, fmt.Errorf("missing title or company")
	}

	raw.URL = e.resolve(href(titleSel))

	conditions := texts(firstSelection(card, e.rules.Conditions))
	if len(conditions) > 0 {
		raw.Location = conditions[0]
	}
	if len(conditions) > 1 {
		switch e.rules.classify(conditions[1]) {
		case FieldCareer:
			raw.Career = conditions[1]
		case FieldEducation:
			raw.Education = conditions[1]
		}
	}
	if len(conditions) > 2 {
		raw.Salary = conditions[2]
	}

	raw.JobCategory = strings.Join(texts(firstSelection(card, e.rules.Categories)), ", ")
	raw.Skills = strings.Join(texts(firstSelection(card, e.rules.Skills)), ", ")

	dates := texts(firstSelection(card, e.rules.Dates))
	if len(dates) > 0 {
		raw.PostedText = dates[0]
		raw.DueText = dates[0]
	}
	if len(dates) > 1 {
		raw.DueText = dates[1]
	}
	return raw, nil
}

func (e *Extractor) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return e.base.ResolveReference(u).String()
}

// decodeBody converts non-UTF-8 bodies using the declared or sniffed charset.
func decodeBody(body []byte, contentType string) io.Reader {
	if utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}

// firstSelection returns the first selector in chain with a non-empty text.
func firstSelection(root *goquery.Selection, chain []string) *goquery.Selection {
	for _, sel := range chain {
		found := root.Find(sel)
		if found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			return found
		}
	}
	return root.FilterFunction(func(int, *goquery.Selection) bool { return false })
}

func firstText(root *goquery.Selection, chain []string) string {
	return text(firstSelection(root, chain).First())
}

func text(sel *goquery.Selection) string {
	return collapse(sel.First().Text())
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func href(sel *goquery.Selection) string {
	if v, ok := sel.First().Attr("href"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.First().Find("a").AttrOr("href", ""))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
