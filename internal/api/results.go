package api

import (
	"net/http"

	"school-admin-core/internal/model"
	"school-admin-core/internal/scoring"
	"school-admin-core/pkg/errors"

	"github.com/gin-gonic/gin"
)

type scoresPayload struct {
	FirstCA  int `json:"first_ca" form:"first_ca"`
	SecondCA int `json:"second_ca" form:"second_ca"`
	ThirdCA  int `json:"third_ca" form:"third_ca"`
	Exam     int `json:"exam" form:"exam"`
}

func (p scoresPayload) scores() model.Scores {
	return model.Scores{FirstCA: p.FirstCA, SecondCA: p.SecondCA, ThirdCA: p.ThirdCA, Exam: p.Exam}
}

type resultRequest struct {
	StudentID   string `json:"student_id"`
	StudentUIN  string `json:"student_uin"`
	SubjectCode string `json:"subject_code"`
	Term        string `json:"term"`
	Session     string `json:"session"`
	scoresPayload
}

// EvaluateScores previews total and grade. Out-of-range inputs are clamped
// the way the score entry grid clamps them.
func (h *Handler) EvaluateScores(c *gin.Context) {
	var req scoresPayload
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Scores must be whole numbers"})
		return
	}

	scores := scoring.Clamp(req.scores())
	total, grade := scoring.Evaluate(scores)
	c.JSON(http.StatusOK, gin.H{
		"scores": scores,
		"total":  total,
		"grade":  grade,
	})
}

func (h *Handler) SubmitResult(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub := model.ResultSubmission{
		StudentID:   req.StudentID,
		StudentUIN:  req.StudentUIN,
		SubjectCode: req.SubjectCode,
		Session:     req.Session,
		Scores:      req.scores(),
	}
	if req.Term != "" {
		term, err := model.ParseTerm(req.Term)
		if err != nil {
			h.writeError(c, errors.ValidationError{Field: "term", Value: req.Term, Message: "must be First, Second or Third"})
			return
		}
		sub.Term = term
	}

	record, err := h.results.Submit(c.Request.Context(), sub)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) ListResults(c *gin.Context) {
	records, err := h.results.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": records})
}

func (h *Handler) DeleteResult(c *gin.Context) {
	if err := h.results.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
