package schoolapi

import (
	"context"
	"net/http"
	"net/url"

	"school-admin-core/internal/model"
)

// StudentsByClass returns the roster of a class, e.g. "Grade 10A".
func (c *Client) StudentsByClass(ctx context.Context, className string) ([]model.Student, error) {
	params := url.Values{}
	params.Add("className", className)
	return c.students(ctx, c.cfg.Endpoints.StudentsByClass, params)
}

// StudentsBySubject returns every student offering the subject.
func (c *Client) StudentsBySubject(ctx context.Context, subjectID string) ([]model.Student, error) {
	params := url.Values{}
	params.Add("subjectId", subjectID)
	return c.students(ctx, c.cfg.Endpoints.StudentsBySubject, params)
}

func (c *Client) students(ctx context.Context, path string, params url.Values) ([]model.Student, error) {
	var payload []Student
	if err := c.do(ctx, http.MethodGet, path, params, nil, &payload); err != nil {
		return nil, err
	}

	students := make([]model.Student, 0, len(payload))
	for _, s := range payload {
		students = append(students, model.Student{
			ID:        string(s.ID),
			UIN:       s.UIN,
			FullName:  s.FullName,
			ClassName: s.ClassName,
		})
	}

	c.log.Debug().
		Str("path", path).
		Int("count", len(students)).
		Msg("Roster loaded")

	return students, nil
}
