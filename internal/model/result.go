package model

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
)

const (
	MaxCAScore   = 10
	MaxExamScore = 70
	MaxTotal     = 3*MaxCAScore + MaxExamScore
)

// Scores are the four components of a result.
type Scores struct {
	FirstCA  int `json:"first_ca" validate:"min=0,max=10"`
	SecondCA int `json:"second_ca" validate:"min=0,max=10"`
	ThirdCA  int `json:"third_ca" validate:"min=0,max=10"`
	Exam     int `json:"exam" validate:"min=0,max=70"`
}

// IsZero reports whether all four components are exactly zero.
func (s Scores) IsZero() bool {
	return s.FirstCA == 0 && s.SecondCA == 0 && s.ThirdCA == 0 && s.Exam == 0
}

// ResultTarget fixes the subject, term and session a result belongs to.
type ResultTarget struct {
	SubjectCode string `json:"subject_code"`
	Term        Term   `json:"term"`
	Session     string `json:"session"`
}

type ResultSubmission struct {
	StudentID   string `validate:"required"`
	StudentUIN  string
	SubjectCode string `validate:"required"`
	Term        Term   `validate:"required"`
	Session     string `validate:"required"`
	Scores      Scores
}

func (s ResultSubmission) Target() ResultTarget {
	return ResultTarget{SubjectCode: s.SubjectCode, Term: s.Term, Session: s.Session}
}

type ResultRecord struct {
	ID          string `json:"id,omitempty"`
	StudentID   string `json:"student_id"`
	StudentUIN  string `json:"student_uin"`
	SubjectCode string `json:"subject_code"`
	Scores      Scores `json:"scores"`
	Total       int    `json:"total"`
	Grade       Grade  `json:"grade"`
	Term        Term   `json:"term"`
	Session     string `json:"session"`
}
