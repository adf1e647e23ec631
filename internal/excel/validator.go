package excel

import (
	"context"
	"regexp"

	"school-admin-core/internal/model"
	"school-admin-core/pkg/errors"
)

type Validator struct {
	uinRegex *regexp.Regexp
}

func NewValidator() *Validator {
	return &Validator{
		uinRegex: regexp.MustCompile(`^[A-Z0-9/-]{3,20}$`),
	}
}

func (v *Validator) Validate(ctx context.Context, rows []model.SheetRow) error {
	if len(rows) == 0 {
		return errors.ErrSchemaValidation
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if err := v.validateRow(row); err != nil {
			return err
		}
		if seen[row.UIN] {
			return errors.ValidationError{Field: "uin", Value: row.UIN, Message: "appears more than once"}
		}
		seen[row.UIN] = true
	}

	return nil
}

func (v *Validator) validateRow(row model.SheetRow) error {
	if !v.uinRegex.MatchString(row.UIN) {
		return errors.ValidationError{
			Field:   "uin",
			Value:   row.UIN,
			Message: "must be 3-20 letters, digits, '/' or '-'",
		}
	}

	cas := map[string]int{
		"first_ca":  row.Scores.FirstCA,
		"second_ca": row.Scores.SecondCA,
		"third_ca":  row.Scores.ThirdCA,
	}
	for field, value := range cas {
		if value < 0 || value > model.MaxCAScore {
			return errors.ValidationError{Field: field, Value: value, Message: "must be between 0 and 10"}
		}
	}

	if row.Scores.Exam < 0 || row.Scores.Exam > model.MaxExamScore {
		return errors.ValidationError{Field: "exam", Value: row.Scores.Exam, Message: "must be between 0 and 70"}
	}

	return nil
}
