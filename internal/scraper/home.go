package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

// LatestHeadingKeywords identify the heading of the newest-albums block.
var LatestHeadingKeywords = []string{"latest soundtracks", "latest", "newest"}

const (
	popularSeriesSelector = "#homepagePopularSeries"
	sectionHeadings       = "h2, h3"
)

// HomeSections extracts the popular series and latest albums blocks of the home page.
// Each block holds at most maxItems unique entries; maxItems <= 0 selects DefaultHomeItems.
func (p *Parser) HomeSections(doc *goquery.Document, maxItems int) domain.HomeSections {
	if maxItems <= 0 {
		maxItems = DefaultHomeItems
	}
	return domain.HomeSections{
		Popular: p.popularSeries(doc, maxItems),
		Latest:  p.latestAlbums(doc, maxItems),
	}
}

// popularSeries reads series links. A series opens a search, not an album page.
func (p *Parser) popularSeries(doc *goquery.Document, maxItems int) []domain.AlbumSummary {
	var items []domain.AlbumSummary
	doc.Find(popularSeriesSelector).First().Find("a.mainlevel[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		name := text(a)
		slug := seriesSlug(href)
		if name == "" || slug == "" {
			return
		}
		items = append(items, domain.AlbumSummary{
			ID:   slug,
			Name: name,
			URL:  p.absolute(href),
			Type: domain.ItemTypeSeries,
		})
	})
	return dedupe(items, maxItems)
}

func seriesSlug(href string) string {
	href = strings.TrimSpace(href)
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	href = strings.Trim(href, "/")
	if i := strings.Index(href, "/"); i >= 0 {
		href = href[:i]
	}
	return href
}

func (p *Parser) latestAlbums(doc *goquery.Document, maxItems int) []domain.AlbumSummary {
	for _, strategy := range []func(*goquery.Document, int) []domain.AlbumSummary{
		p.latestUnderHeading,
		p.latestAnchorScan,
	} {
		if items := strategy(doc, maxItems); len(items) > 0 {
			return items
		}
	}
	return []domain.AlbumSummary{}
}

// latestUnderHeading collects album links between the first matching heading and the next heading.
func (p *Parser) latestUnderHeading(doc *goquery.Document, maxItems int) []domain.AlbumSummary {
	var heading *goquery.Selection
	doc.Find(sectionHeadings).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		t := strings.ToLower(text(h))
		for _, k := range LatestHeadingKeywords {
			if strings.Contains(t, k) {
				heading = h
				return false
			}
		}
		return true
	})
	if heading == nil {
		return nil
	}

	var items []domain.AlbumSummary
	add := func(_ int, a *goquery.Selection) bool {
		if item, ok := p.homeItem(a); ok {
			items = append(items, item)
		}
		return len(items) < maxItems
	}

	for sib := heading.Next(); sib.Length() > 0 && len(items) < maxItems; sib = sib.Next() {
		if sib.Is(sectionHeadings) {
			break
		}
		if sib.Is("a[href]") {
			add(0, sib)
			continue
		}
		sib.Find("a[href]").EachWithBreak(add)
	}
	return dedupe(items, maxItems)
}

func (p *Parser) latestAnchorScan(doc *goquery.Document, maxItems int) []domain.AlbumSummary {
	var items []domain.AlbumSummary
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if item, ok := p.homeItem(a); ok {
			items = append(items, item)
		}
	})
	return dedupe(items, maxItems)
}

func (p *Parser) homeItem(a *goquery.Selection) (domain.AlbumSummary, bool) {
	item, ok := p.albumFromAnchor(a)
	if !ok {
		return item, false
	}
	item.Icon = p.firstImage(a, a.Parent())
	return item, true
}
