package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// DomainManager paces page loads per domain and caches robots.txt
// verdicts. Pacing keeps navigation timing human-like; the robots check
// is opt-in via config since review pages are public profile data.
type DomainManager struct {
	mu          sync.Mutex
	interval    time.Duration
	userAgent   string
	limiters    map[string]*rate.Limiter
	robotsCache map[string]*robotstxt.Group
}

func NewDomainManager(interval time.Duration, userAgent string) *DomainManager {
	return &DomainManager{
		interval:    interval,
		userAgent:   userAgent,
		limiters:    make(map[string]*rate.Limiter),
		robotsCache: make(map[string]*robotstxt.Group),
	}
}

// Wait blocks until the domain's limiter allows the next page load.
func (d *DomainManager) Wait(ctx context.Context, targetURL string) error {
	u, err := url.Parse(targetURL)
	if err != nil {
		return err
	}

	d.mu.Lock()
	limiter, exists := d.limiters[u.Host]
	if !exists {
		// Burst of 1: first load goes through immediately, the rest
		// are spaced by the configured interval.
		limiter = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[u.Host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

// IsAllowed checks the cached robots.txt group for the URL's path.
// Fetch or parse failures count as allowed.
func (d *DomainManager) IsAllowed(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	group, exists := d.robotsCache[u.Host]
	if !exists {
		resp, err := http.Get(u.Scheme + "://" + u.Host + "/robots.txt")
		if err != nil {
			d.robotsCache[u.Host] = nil
			return true
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			d.robotsCache[u.Host] = nil
			return true
		}

		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			d.robotsCache[u.Host] = nil
			return true
		}
		group = data.FindGroup(d.userAgent)
		d.robotsCache[u.Host] = group
	}

	if group == nil {
		return true
	}
	return group.Test(u.Path)
}
