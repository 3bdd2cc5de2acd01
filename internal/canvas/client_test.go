package canvas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"canvassync/pkg/logx"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		Token:      "test-token",
		PerPage:    2,
		RatePerSec: 1000,
		Burst:      1000,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestActiveCoursesPagination(t *testing.T) {
	t.Parallel()

	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("enrollment_state"); got != "active" {
			t.Errorf("enrollment_state = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":3,"name":"Calculus","course_code":"MATH 205"}]`)
			return
		}
		// Canvas echoes the original query params in pagination links.
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses?enrollment_state=active&page=2&per_page=2>; rel="next", <%s/api/v1/courses?enrollment_state=active&page=1&per_page=2>; rel="first"`, srvURL, srvURL))
		fmt.Fprint(w, `[{"id":1,"name":"Systems","course_code":"CS 363"},{"id":2,"name":"Networks","course_code":"CS 401"}]`)
	})

	c, srv := newTestClient(t, mux)
	srvURL = srv.URL

	courses, err := c.ActiveCourses(context.Background())
	if err != nil {
		t.Fatalf("ActiveCourses: %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("len(courses) = %d, want 3 (both pages)", len(courses))
	}
	if courses[0].CourseCode != "CS 363" || courses[2].CourseCode != "MATH 205" {
		t.Fatalf("unexpected courses: %+v", courses)
	}
}

func TestAnnouncementsDecoding(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/7/discussion_topics", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("only_announcements"); got != "true" {
			t.Errorf("only_announcements = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":11,"title":"Quiz moved","message":"<p>next class</p>","posted_at":"2024-01-03T09:00:00Z","html_url":"https://x/11"}]`)
	})

	c, _ := newTestClient(t, mux)
	anns, err := c.Announcements(context.Background(), 7)
	if err != nil {
		t.Fatalf("Announcements: %v", err)
	}
	if len(anns) != 1 || anns[0].Title != "Quiz moved" || anns[0].PostedAt != "2024-01-03T09:00:00Z" {
		t.Fatalf("unexpected announcements: %+v", anns)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"Invalid access token."}]}`, http.StatusUnauthorized)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.ActiveCourses(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewClient(Config{Token: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing base_url")
	}
	if _, err := NewClient(Config{BaseURL: "https://canvas.example"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNextLink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "next present",
			header: `<https://c/api/v1/courses?page=2>; rel="next", <https://c/api/v1/courses?page=1>; rel="first"`,
			want:   "https://c/api/v1/courses?page=2",
		},
		{name: "no next", header: `<https://c/api?page=1>; rel="first"`, want: ""},
		{name: "empty", header: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := nextLink(tt.header); got != tt.want {
				t.Fatalf("nextLink = %q, want %q", got, tt.want)
			}
		})
	}
}
