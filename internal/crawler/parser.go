package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"avvo-crawler/pkg/models"
)

// ErrNoNextPage means the page carries no pagination affordance.
var ErrNoNextPage = errors.New("no next page link")

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	postedByRe   = regexp.MustCompile(`Posted by (.+?)\s*\|\s*([^|]+?)\s*(?:\|.*)?$`)
	repliedRe    = regexp.MustCompile(`(?i)Replied last (.+)`)
	attorneysRe  = regexp.MustCompile(`/attorneys/([^/]+)\.html`)
	pageParamRe  = regexp.MustCompile(`[?&]page=(\d+)`)
	urlUnsafeRe  = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
)

// ParseReviews extracts every review block from one rendered page.
// Missing fields come back as empty strings; a page without reviews
// yields an empty slice and no error.
func ParseReviews(html string) ([]models.RawReview, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var reviews []models.RawReview
	doc.Find("div.client-review").Each(func(_ int, s *goquery.Selection) {
		var r models.RawReview

		if stars := s.Find("i.icon-star-yellow").Length(); stars > 0 {
			r.RatingText = strconv.Itoa(stars)
		}

		header := s.Find("div.client-review-header").First()
		if header.Length() > 0 {
			// Tooltips repeat boilerplate inside the header text.
			header.Find("div.tooltip, span.tooltiptext").Remove()

			para := header.Find("p").First()
			if para.Length() > 0 {
				if span := para.Find("span").First(); span.Length() > 0 {
					typeText := strings.Trim(collapse(span.Text()), "| ")
					if typeText != "" && !strings.Contains(typeText, "This review is from") {
						r.ReviewType = typeText
					}
				}

				paraText := collapse(para.Text())
				if r.ReviewType != "" {
					paraText = collapse(strings.ReplaceAll(paraText, r.ReviewType, ""))
				}
				paraText = strings.TrimRight(paraText, "| ")
				if m := postedByRe.FindStringSubmatch(paraText); m != nil {
					r.Reviewer = strings.TrimSpace(m[1])
					r.DateText = strings.TrimSpace(m[2])
				}
			}
		}

		response := s.Find("div.attorney-review-response-container").First()
		if title := s.Find("h4").First(); title.Length() > 0 {
			// The response block has its own h4; only a heading outside
			// it is the review title.
			if response.Length() == 0 || title.Text() != response.Find("h4").First().Text() {
				r.Title = collapse(title.Text())
			}
		}

		var parts []string
		s.Find("div.client-review-content p span").Each(func(_ int, span *goquery.Selection) {
			text := collapse(span.Text())
			switch text {
			case "", "...", "…", "See Full Review":
			default:
				parts = append(parts, text)
			}
		})
		r.Body = strings.Join(parts, " ")

		if response.Length() > 0 {
			r.ResponseName = collapse(response.Find("h4").First().Text())
			if m := repliedRe.FindStringSubmatch(response.Find("span").First().Text()); m != nil {
				r.ResponseDateText = strings.TrimSpace(m[1])
			}
			r.ResponseText = collapse(response.Find("p").First().Text())
		}

		if r.Reviewer != "" || r.Title != "" || r.Body != "" {
			reviews = append(reviews, r)
		}
	})

	return reviews, nil
}

// ParseProfile extracts the attorney identity from a profile page. The
// canonical URL (falling back to pageURL) carries the nomenclature
// slug: <zip>-<state>-<name parts...>-<profile id>.
func ParseProfile(html, pageURL string) models.Profile {
	var p models.Profile

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.AttorneyID = TargetID(pageURL)
		return p
	}

	p.Name = collapse(doc.Find("h1.profile-name").First().Text())

	profileURL := doc.Find(`link[rel="canonical"]`).First().AttrOr("href", "")
	if profileURL == "" {
		profileURL = pageURL
	}
	p.CanonicalURL = profileURL

	if m := attorneysRe.FindStringSubmatch(profileURL); m != nil {
		p.AttorneyID = m[1]
		// Slug shape: zip, state, any number of name parts, profile id.
		parts := strings.Split(m[1], "-")
		if len(parts) >= 4 {
			p.ZipCode = parts[0]
			p.StateCode = strings.ToUpper(parts[1])
			p.ProfileID = parts[len(parts)-1]
			if p.Name == "" {
				p.Name = titleCase(strings.Join(parts[2:len(parts)-1], " "))
			}
		}
	} else {
		p.AttorneyID = TargetID(pageURL)
	}

	return p
}

// NextPageURL finds a pagination link that advances past index (the
// 1-based number of the page the HTML came from). Returns ErrNoNextPage
// when the page has no such affordance.
func NextPageURL(html, currentURL string, index int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing page: %w", err)
	}

	base, err := url.Parse(currentURL)
	if err != nil {
		return "", err
	}

	var next string
	doc.Find(`a[rel="next"], a[href*="page="]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref).String()
		m := pageParamRe.FindStringSubmatch(abs)
		if m == nil {
			return true
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n == index+1 {
			next = abs
			return false
		}
		return true
	})

	if next == "" {
		return "", ErrNoNextPage
	}
	return next, nil
}

// ProbePageURL synthesizes the ?page=N URL the site uses, for probing
// past a page that had reviews but no visible pagination controls.
func ProbePageURL(targetURL string, index int) string {
	base := targetURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return fmt.Sprintf("%s?page=%d", base, index)
}

// TargetID derives the stable identifier used to key snapshots and
// dedup scans: the attorney slug when the URL has one, otherwise the
// sanitized URL.
func TargetID(targetURL string) string {
	if m := attorneysRe.FindStringSubmatch(targetURL); m != nil {
		return m[1]
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(targetURL, "https://"), "http://")
	return strings.Trim(urlUnsafeRe.ReplaceAllString(trimmed, "_"), "_")
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
