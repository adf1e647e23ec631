package results

import (
	"context"
	"fmt"

	"school-admin-core/internal/model"
	"school-admin-core/internal/observability"
	"school-admin-core/internal/schoolapi"
	"school-admin-core/internal/scoring"
	"school-admin-core/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ResultAPI is the results part of the school API.
type ResultAPI interface {
	CreateResult(ctx context.Context, result schoolapi.Result) (*schoolapi.Result, error)
	ListResults(ctx context.Context) ([]schoolapi.Result, error)
	DeleteResult(ctx context.Context, id string) error
}

// Service prepares and dispatches single results. Session identity is
// supplied by the caller on every submission.
type Service struct {
	api       ResultAPI
	validator *validator.Validate
	log       zerolog.Logger
}

func NewService(api ResultAPI, validate *validator.Validate, log zerolog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{
		api:       api,
		validator: validate,
		log:       log.With().Str("component", "results").Logger(),
	}
}

// Submit validates locally, then creates or updates the result for the
// (student, subject, term, session) identity. Rejections carry the server's
// message unchanged; nothing is retried.
func (s *Service) Submit(ctx context.Context, sub model.ResultSubmission) (model.ResultRecord, error) {
	if err := s.Validate(sub); err != nil {
		return model.ResultRecord{}, err
	}

	total, grade := scoring.Evaluate(sub.Scores)

	created, err := s.api.CreateResult(ctx, schoolapi.Result{
		StudentID:   sub.StudentID,
		StudentUIN:  sub.StudentUIN,
		SubjectCode: sub.SubjectCode,
		FirstCA:     sub.Scores.FirstCA,
		SecondCA:    sub.Scores.SecondCA,
		ThirdCA:     sub.Scores.ThirdCA,
		Exam:        sub.Scores.Exam,
		Term:        sub.Term.Ordinal(),
		Session:     sub.Session,
	})
	if err != nil {
		observability.ResultsSubmitted().WithLabelValues("failed").Inc()
		s.log.Warn().
			Err(err).
			Str("student_uin", sub.StudentUIN).
			Str("subject", sub.SubjectCode).
			Msg("Result submission rejected")
		return model.ResultRecord{}, err
	}
	observability.ResultsSubmitted().WithLabelValues("succeeded").Inc()

	return model.ResultRecord{
		ID:          string(created.ID),
		StudentID:   sub.StudentID,
		StudentUIN:  sub.StudentUIN,
		SubjectCode: sub.SubjectCode,
		Scores:      sub.Scores,
		Total:       total,
		Grade:       grade,
		Term:        sub.Term,
		Session:     sub.Session,
	}, nil
}

// Validate runs the checks Submit performs before any network call.
func (s *Service) Validate(sub model.ResultSubmission) error {
	switch {
	case sub.SubjectCode == "":
		return errors.ErrMissingSubject
	case sub.Session == "":
		return errors.ErrMissingSession
	case sub.Term == "":
		return errors.ErrMissingTerm
	case !sub.Term.Valid():
		return errors.ValidationError{Field: "term", Value: sub.Term, Message: "must be First, Second or Third"}
	}

	if err := s.validator.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ValidationError{Field: fe.Field(), Value: fe.Value(), Message: describe(fe)}
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// List returns every stored result with total and grade derived locally.
func (s *Service) List(ctx context.Context) ([]model.ResultRecord, error) {
	payload, err := s.api.ListResults(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]model.ResultRecord, 0, len(payload))
	for _, r := range payload {
		term, ok := model.TermFromOrdinal(r.Term)
		if !ok {
			observability.TermOrdinalFallbacks().Inc()
			s.log.Warn().Str("marker", "term_ordinal_fallback").Int("ordinal", r.Term).Str("result_id", string(r.ID)).Msg("Result term ordinal outside 1..3, treating as First")
		}
		scores := model.Scores{FirstCA: r.FirstCA, SecondCA: r.SecondCA, ThirdCA: r.ThirdCA, Exam: r.Exam}
		total, grade := scoring.Evaluate(scores)
		records = append(records, model.ResultRecord{
			ID:          string(r.ID),
			StudentID:   r.StudentID,
			StudentUIN:  r.StudentUIN,
			SubjectCode: r.SubjectCode,
			Scores:      scores,
			Total:       total,
			Grade:       grade,
			Term:        term,
			Session:     r.Session,
		})
	}
	return records, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.ValidationError{Field: "id", Value: id, Message: "is required"}
	}
	return s.api.DeleteResult(ctx, id)
}
