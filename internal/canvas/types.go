package canvas

// Wire types for the Canvas REST API (api/v1). Only the fields the sync
// pass reads are decoded; everything else is ignored.

type Course struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseCode string `json:"course_code"`
}

type Assignment struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	DueAt   string `json:"due_at"` // RFC3339, may be empty
	HTMLURL string `json:"html_url"`
}

// Announcement is a discussion topic fetched with only_announcements=true.
type Announcement struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Message  string `json:"message"` // HTML body
	PostedAt string `json:"posted_at"`
	HTMLURL  string `json:"html_url"`
}

type CalendarEvent struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	StartAt string `json:"start_at"`
}
