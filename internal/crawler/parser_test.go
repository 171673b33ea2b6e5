package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const profilePageHTML = `
<!DOCTYPE html>
<html>
<head>
	<title>Michael DeMayo - Charlotte Attorney - Avvo</title>
	<link rel="canonical" href="https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html">
</head>
<body>
	<h1 class="profile-name">Michael A. DeMayo</h1>

	<div class="client-review">
		<div class="review-stars">
			<i class="icon-star-yellow"></i><i class="icon-star-yellow"></i><i class="icon-star-yellow"></i><i class="icon-star-yellow"></i><i class="icon-star-yellow"></i>
		</div>
		<div class="client-review-header">
			<p><span>Car accident |</span> Posted by Sarah | August 3, 2025</p>
		</div>
		<h4>Outstanding representation</h4>
		<div class="client-review-content">
			<p>
				<span>They handled everything</span>
				<span>...</span>
				<span>and kept me informed the whole time.</span>
				<span>See Full Review</span>
			</p>
		</div>
		<div class="attorney-review-response-container">
			<h4>Michael A. DeMayo</h4>
			<span>Replied last August 5, 2025</span>
			<p>Thank you for trusting us with your case.</p>
		</div>
	</div>

	<div class="client-review">
		<div class="client-review-header">
			<p>Posted by Anonymous | 3 weeks ago</p>
		</div>
		<div class="client-review-content">
			<p><span>Never returned my calls.</span></p>
		</div>
	</div>

	<div class="client-review">
		<div class="review-stars"><i class="icon-star-yellow"></i></div>
	</div>

	<div class="pagination">
		<a rel="next" href="?page=2">Next</a>
	</div>
</body>
</html>
`

func TestParseReviews(t *testing.T) {
	reviews, err := ParseReviews(profilePageHTML)
	require.NoError(t, err)
	// The third block has neither reviewer, title nor body and is dropped.
	require.Len(t, reviews, 2)

	full := reviews[0]
	require.Equal(t, "Sarah", full.Reviewer)
	require.Equal(t, "August 3, 2025", full.DateText)
	require.Equal(t, "5", full.RatingText)
	require.Equal(t, "Car accident", full.ReviewType)
	require.Equal(t, "Outstanding representation", full.Title)
	require.Equal(t, "They handled everything and kept me informed the whole time.", full.Body)
	require.Equal(t, "Michael A. DeMayo", full.ResponseName)
	require.Equal(t, "August 5, 2025", full.ResponseDateText)
	require.Equal(t, "Thank you for trusting us with your case.", full.ResponseText)

	sparse := reviews[1]
	require.Equal(t, "Anonymous", sparse.Reviewer)
	require.Equal(t, "3 weeks ago", sparse.DateText)
	require.Empty(t, sparse.RatingText)
	require.Empty(t, sparse.ReviewType)
	require.Empty(t, sparse.Title)
	require.Equal(t, "Never returned my calls.", sparse.Body)
	require.Empty(t, sparse.ResponseName)
}

func TestParseReviews_EmptyPage(t *testing.T) {
	reviews, err := ParseReviews(`<html><body><h1 class="profile-name">Jane Roe</h1></body></html>`)
	require.NoError(t, err)
	require.Empty(t, reviews)
}

func TestParseReviews_HeaderWithTrailingSegment(t *testing.T) {
	html := `
	<div class="client-review">
		<div class="client-review-header"><p>Posted by Dana | 01/02/2024 | Hired attorney</p></div>
		<div class="client-review-content"><p><span>Great counsel.</span></p></div>
	</div>`

	reviews, err := ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, "Dana", reviews[0].Reviewer)
	// Anything after a second separator is noise, not part of the date.
	require.Equal(t, "01/02/2024", reviews[0].DateText)
}

func TestParseReviews_ResponseHeadingIsNotTitle(t *testing.T) {
	html := `
	<div class="client-review">
		<div class="client-review-header"><p>Posted by Tom | 05/14/2024</p></div>
		<div class="client-review-content"><p><span>Solid work.</span></p></div>
		<div class="attorney-review-response-container">
			<h4>Jane Roe</h4>
			<span>Replied last May 15, 2024</span>
			<p>Thanks, Tom.</p>
		</div>
	</div>`

	reviews, err := ParseReviews(html)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Empty(t, reviews[0].Title)
	require.Equal(t, "Jane Roe", reviews[0].ResponseName)
}

func TestParseProfile(t *testing.T) {
	p := ParseProfile(profilePageHTML, "https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html?page=1")
	require.Equal(t, "28204-nc-michael-demayo-1742166", p.AttorneyID)
	require.Equal(t, "Michael A. DeMayo", p.Name)
	require.Equal(t, "28204", p.ZipCode)
	require.Equal(t, "NC", p.StateCode)
	require.Equal(t, "1742166", p.ProfileID)
	require.Equal(t, "https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html", p.CanonicalURL)
}

func TestParseProfile_NameFromSlug(t *testing.T) {
	p := ParseProfile("<html><body></body></html>", "https://www.avvo.com/attorneys/90210-ca-jane-roe-55.html")
	require.Equal(t, "90210-ca-jane-roe-55", p.AttorneyID)
	require.Equal(t, "Jane Roe", p.Name)
	require.Equal(t, "CA", p.StateCode)
}

func TestParseProfile_NonSlugURL(t *testing.T) {
	p := ParseProfile("<html><body></body></html>", "https://example.com/lawyer?id=9")
	require.Equal(t, "example.com_lawyer_id_9", p.AttorneyID)
	require.Empty(t, p.ZipCode)
}

func TestNextPageURL(t *testing.T) {
	current := "https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html"

	next, err := NextPageURL(profilePageHTML, current, 1)
	require.NoError(t, err)
	require.Equal(t, current+"?page=2", next)

	// The same link does not advance past page 2.
	_, err = NextPageURL(profilePageHTML, current+"?page=2", 2)
	require.ErrorIs(t, err, ErrNoNextPage)

	_, err = NextPageURL(`<html><body><p>no links</p></body></html>`, current, 1)
	require.ErrorIs(t, err, ErrNoNextPage)
}

func TestProbePageURL(t *testing.T) {
	require.Equal(t,
		"https://www.avvo.com/attorneys/a.html?page=3",
		ProbePageURL("https://www.avvo.com/attorneys/a.html?page=2", 3))
	require.Equal(t,
		"https://www.avvo.com/attorneys/a.html?page=2",
		ProbePageURL("https://www.avvo.com/attorneys/a.html", 2))
}

func TestTargetID(t *testing.T) {
	require.Equal(t,
		"28204-nc-michael-demayo-1742166",
		TargetID("https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html"))
	require.Equal(t,
		"example.com_profiles_42",
		TargetID("https://example.com/profiles/42"))
}
