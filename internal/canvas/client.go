// Package canvas is a minimal read-only client for the Canvas LMS REST API.
//
// It covers the four endpoints the sync pass needs (courses, assignments,
// announcements, personal calendar events), follows RFC 5988 Link-header
// pagination, and rate-limits outbound requests so a large enrollment does
// not trip Canvas' API throttling.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"canvassync/pkg/logx"
)

type Config struct {
	BaseURL string
	Token   string

	// PerPage controls the page size requested from Canvas (default 100).
	PerPage int
	// RatePerSec / Burst configure the client-side request limiter
	// (defaults: 5 req/s, burst 5).
	RatePerSec float64
	Burst      int
	// RequestTimeout bounds a single HTTP request (default 30s).
	RequestTimeout time.Duration
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	URL        string
	Body       string // first bytes of the response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

type Client struct {
	base    *url.URL
	token   string
	hc      *http.Client
	limiter *rate.Limiter
	perPage int
	log     logx.Logger
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("canvas: base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("canvas: invalid base_url %q: %w", cfg.BaseURL, err)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("canvas: api token is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		base:    u,
		token:   cfg.Token,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		perPage: perPage,
		log:     log,
	}, nil
}

// ActiveCourses lists courses with an active enrollment.
func (c *Client) ActiveCourses(ctx context.Context) ([]Course, error) {
	return getAll[Course](ctx, c, "/api/v1/courses", url.Values{
		"enrollment_state": {"active"},
	})
}

// UpcomingAssignments lists assignments in the "upcoming" bucket for a course.
func (c *Client) UpcomingAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	return getAll[Assignment](ctx, c, path, url.Values{
		"bucket": {"upcoming"},
	})
}

// Announcements lists a course's announcements (discussion topics with
// only_announcements=true).
func (c *Client) Announcements(ctx context.Context, courseID int64) ([]Announcement, error) {
	path := fmt.Sprintf("/api/v1/courses/%d/discussion_topics", courseID)
	return getAll[Announcement](ctx, c, path, url.Values{
		"only_announcements": {"true"},
	})
}

// CalendarEvents lists the authenticated user's calendar events starting at
// startDate ("YYYY-MM-DD").
func (c *Client) CalendarEvents(ctx context.Context, startDate string) ([]CalendarEvent, error) {
	return getAll[CalendarEvent](ctx, c, "/api/v1/users/self/calendar_events", url.Values{
		"start_date": {startDate},
	})
}

// getAll fetches every page of a list endpoint.
func getAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	next := c.buildURL(path, query)
	var all []T
	for next != "" {
		var page []T
		nxt, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = nxt
	}
	return all, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("per_page", strconv.Itoa(c.perPage))
	return c.base.String() + path + "?" + q.Encode()
}

// getJSON performs one rate-limited GET, decodes the body into out, and
// returns the rel="next" pagination URL (empty on the last page).
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &APIError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("canvas: decoding %s: %w", rawURL, err)
	}
	return nextLink(resp.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" target from an RFC 5988 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
