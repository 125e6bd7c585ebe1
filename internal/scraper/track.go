package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/veranemoloko/soundtrack-downloader/internal/storage"
)

type linkStrategy func(doc *goquery.Document) string

// AudioLink finds the direct audio file URL on a track page. It tries, in order:
// an audio element, the dedicated download link, a link to a known media host
// and finally any link ending in an audio extension. Returns "" when none match.
func (p *Parser) AudioLink(doc *goquery.Document) string {
	for _, strategy := range []linkStrategy{
		p.audioElement,
		p.downloadLinkClass,
		p.mediaHostLink,
		p.audioExtensionLink,
	} {
		if link := strategy(doc); link != "" {
			return p.absolute(link)
		}
	}
	return ""
}

func (p *Parser) audioElement(doc *goquery.Document) string {
	audio := doc.Find("audio").First()
	if src := strings.TrimSpace(audio.AttrOr("src", "")); src != "" {
		return src
	}
	return strings.TrimSpace(audio.Find("source[src]").First().AttrOr("src", ""))
}

func (p *Parser) downloadLinkClass(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("a.songDownloadLink[href]").First().AttrOr("href", ""))
}

func (p *Parser) mediaHostLink(doc *goquery.Document) string {
	return firstHref(doc, func(href string) bool {
		return containsAny(strings.ToLower(href), p.mediaHosts)
	})
}

func (p *Parser) audioExtensionLink(doc *goquery.Document) string {
	return firstHref(doc, func(href string) bool {
		if u, err := url.Parse(href); err == nil {
			href = u.Path
		}
		return storage.HasAudioExt(href)
	})
}

func firstHref(doc *goquery.Document, match func(string) bool) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href != "" && match(href) {
			found = href
			return false
		}
		return true
	})
	return found
}
