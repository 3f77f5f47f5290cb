package mainimage

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// infoboxSelector matches tables whose class list contains "infobox"
// (e.g. "infobox vcard", "infobox biota").
const infoboxSelector = "table.infobox"

// ExtractCandidates parses article markup into image candidates.
//
// When the first infobox table holds a usable img, exactly one Infobox candidate is returned.
// Otherwise every usable img of the document is returned in document order as Body candidates.
// An infobox without images falls through to the body scan.
func ExtractCandidates(markup string) ([]models.ImageCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}

	if infobox := doc.Find(infoboxSelector).First(); infobox.Length() > 0 {
		var ref string
		infobox.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if src, ok := usableSource(img); ok {
				ref = src
				return false
			}
			return true
		})
		if ref != "" {
			return []models.ImageCandidate{{SourceReference: ref, Context: models.ContextInfobox}}, nil
		}
	}

	var candidates []models.ImageCandidate
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := usableSource(img); ok {
			candidates = append(candidates, models.ImageCandidate{SourceReference: src, Context: models.ContextBody})
		}
	})
	return candidates, nil
}

// usableSource returns the src attribute unless it is missing, blank or an inline data URI
func usableSource(img *goquery.Selection) (string, bool) {
	src, exists := img.Attr("src")
	src = strings.TrimSpace(src)
	if !exists || src == "" {
		return "", false
	}
	if strings.HasPrefix(src, "data:") {
		return "", false
	}
	return src, true
}
