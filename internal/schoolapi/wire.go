package schoolapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Session is the current-session payload. Term is the API's ordinal and is
// decoded by the caller.
type Session struct {
	ID                 int64   `json:"id"`
	CurrentSession     string  `json:"current_Session"`
	CurrentTerm        int     `json:"current_Term"`
	SchoolName         string  `json:"schoolName,omitempty"`
	SchoolLogoFilePath *string `json:"schoolLogoFilePath,omitempty"`
	NextTermBeginsOn   *string `json:"nextTermBeginsOn,omitempty"`
	CurrentTermEndsOn  *string `json:"currentTermEndsOn,omitempty"`
	IsActive           *bool   `json:"isActive,omitempty"`
}

type SessionUpdateRequest struct {
	ID                int64   `json:"id"`
	CurrentSession    string  `json:"current_Session"`
	CurrentTerm       int     `json:"current_Term"`
	NextTermBeginsOn  *string `json:"nextTermBeginsOn,omitempty"`
	CurrentTermEndsOn *string `json:"currentTermEndsOn,omitempty"`
}

type SessionDatesRequest struct {
	ID                int64   `json:"id"`
	NextTermBeginsOn  *string `json:"nextTermBeginsOn,omitempty"`
	CurrentTermEndsOn *string `json:"currentTermEndsOn,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Result struct {
	ID          FlexID `json:"id,omitempty"`
	StudentID   string `json:"studentId"`
	StudentUIN  string `json:"studentUin"`
	SubjectCode string `json:"subjectCode"`
	FirstCA     int    `json:"first_CA_Score"`
	SecondCA    int    `json:"second_CA_Score"`
	ThirdCA     int    `json:"third_CA_Score"`
	Exam        int    `json:"exam_Score"`
	Term        int    `json:"term"`
	Session     string `json:"session"`
}

type Student struct {
	ID        FlexID `json:"id"`
	UIN       string `json:"uin"`
	FullName  string `json:"fullName"`
	ClassName string `json:"className,omitempty"`
}

// FlexID accepts identifiers encoded either as JSON strings or numbers.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999999999"}

// ParseDate decodes an optional date field. Empty values decode to nil.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*s)); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", *s)
}

// FormatDate encodes an optional date; nil stays nil so the field is omitted.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// errorBody covers the shapes the API uses for rejections.
type errorBody struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		for _, m := range []string{eb.Message, eb.Detail, eb.Title, eb.Error} {
			if m != "" {
				return m
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	if len(text) > 500 {
		text = text[:500]
	}
	return text
}
