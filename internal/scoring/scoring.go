// Package scoring turns continuous-assessment and exam scores into a total
// and a letter grade. Functions here do no validation so they stay cheap
// enough to call on every keystroke; clamp inputs first.
package scoring

import "school-admin-core/internal/model"

// Band is the inclusive lower bound of a grade.
type Band struct {
	Grade model.Grade
	Min   int
}

var bands = []Band{
	{Grade: model.GradeA, Min: 70},
	{Grade: model.GradeB, Min: 60},
	{Grade: model.GradeC, Min: 50},
	{Grade: model.GradeD, Min: 45},
	{Grade: model.GradeE, Min: 40},
	{Grade: model.GradeF, Min: 0},
}

// Bands returns the grade table, highest grade first.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

func ComputeTotal(firstCA, secondCA, thirdCA, exam int) int {
	return firstCA + secondCA + thirdCA + exam
}

// GradeFor maps a total to its band. Totals below zero grade as F.
func GradeFor(total int) model.Grade {
	for _, b := range bands {
		if total >= b.Min {
			return b.Grade
		}
	}
	return model.GradeF
}

func Evaluate(s model.Scores) (int, model.Grade) {
	total := ComputeTotal(s.FirstCA, s.SecondCA, s.ThirdCA, s.Exam)
	return total, GradeFor(total)
}

func ClampCA(v int) int {
	return clamp(v, model.MaxCAScore)
}

func ClampExam(v int) int {
	return clamp(v, model.MaxExamScore)
}

// Clamp forces every component into its valid range.
func Clamp(s model.Scores) model.Scores {
	return model.Scores{
		FirstCA:  ClampCA(s.FirstCA),
		SecondCA: ClampCA(s.SecondCA),
		ThirdCA:  ClampCA(s.ThirdCA),
		Exam:     ClampExam(s.Exam),
	}
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
