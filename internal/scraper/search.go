package scraper

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/veranemoloko/soundtrack-downloader/internal/domain"
)

// resultTableSelectors are tried in order; the first present table is used.
var resultTableSelectors = []string{"table#albumlist", "table.albumlist", "table.chart"}

type listStrategy func(doc *goquery.Document) []domain.AlbumSummary

// SearchResults extracts at most MaxSearchResults albums from a search results page.
func (p *Parser) SearchResults(doc *goquery.Document) []domain.AlbumSummary {
	for _, strategy := range []listStrategy{p.searchResultTable, p.searchAnchorScan} {
		if results := strategy(doc); len(results) > 0 {
			if len(results) > MaxSearchResults {
				results = results[:MaxSearchResults]
			}
			return results
		}
	}
	return []domain.AlbumSummary{}
}

func (p *Parser) searchResultTable(doc *goquery.Document) []domain.AlbumSummary {
	var table *goquery.Selection
	for _, sel := range resultTableSelectors {
		if t := doc.Find(sel).First(); t.Length() > 0 {
			table = t
			break
		}
	}
	if table == nil {
		return nil
	}

	var results []domain.AlbumSummary
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("th").Length() > 0 {
			return true
		}

		var item domain.AlbumSummary
		found := false
		row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			item, found = p.albumFromAnchor(a)
			return !found
		})
		if !found {
			return true
		}

		item.Icon = p.firstImage(row)
		results = append(results, item)
		return len(results) < MaxSearchResults
	})
	return results
}

// searchAnchorScan looks at every album link of the page. Very short names are
// icon or spacer links and are ignored.
func (p *Parser) searchAnchorScan(doc *goquery.Document) []domain.AlbumSummary {
	var results []domain.AlbumSummary
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		item, ok := p.albumFromAnchor(a)
		if !ok || runeLen(item.Name) <= 2 {
			return
		}
		item.Icon = p.firstImage(a.Parent())
		results = append(results, item)
	})
	return dedupe(results, MaxSearchResults)
}
