package excel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"school-admin-core/internal/model"
	"school-admin-core/pkg/errors"
)

func buildSheet(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func header() []interface{} {
	return []interface{}{"student_id", "UIN", "first_ca", "second_ca", "third_ca", "exam"}
}

func TestParseSheet(t *testing.T) {
	data := buildSheet(t,
		header(),
		[]interface{}{"101", "stu001", 8, 7, 9, 55},
		[]interface{}{"", "", "", "", "", ""},
		[]interface{}{"102", "STU002", 5, "", 4, "60.0"},
	)

	rows, err := NewParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, []model.SheetRow{
		{StudentID: "101", UIN: "STU001", Scores: model.Scores{FirstCA: 8, SecondCA: 7, ThirdCA: 9, Exam: 55}},
		{StudentID: "102", UIN: "STU002", Scores: model.Scores{FirstCA: 5, ThirdCA: 4, Exam: 60}},
	}, rows)
}

func TestParseRejectsBadSheets(t *testing.T) {
	ctx := context.Background()
	p := NewParser()

	_, err := p.Parse(ctx, []byte("not a workbook"))
	require.Error(t, err)

	_, err = p.Parse(ctx, buildSheet(t, header()))
	require.ErrorIs(t, err, errors.ErrInvalidFileFormat)

	_, err = p.Parse(ctx, buildSheet(t,
		[]interface{}{"student_id", "uin", "first_ca", "second_ca", "exam"},
		[]interface{}{"101", "STU001", 8, 7, 55},
	))
	require.ErrorIs(t, err, errors.ErrInvalidFileFormat)
	require.Contains(t, err.Error(), "third_ca")

	_, err = p.Parse(ctx, buildSheet(t,
		header(),
		[]interface{}{"101", "STU001", "7.5", 7, 9, 55},
	))
	require.ErrorContains(t, err, "row 2")

	_, err = p.Parse(ctx, buildSheet(t,
		header(),
		[]interface{}{"", "STU001", 7, 7, 9, 55},
	))
	require.ErrorContains(t, err, "student_id is required")
}

func TestValidateRows(t *testing.T) {
	ctx := context.Background()
	v := NewValidator()

	ok := []model.SheetRow{
		{StudentID: "1", UIN: "STU001", Scores: model.Scores{FirstCA: 10, Exam: 70}},
		{StudentID: "2", UIN: "SS2/014", Scores: model.Scores{}},
	}
	require.NoError(t, v.Validate(ctx, ok))

	require.ErrorIs(t, v.Validate(ctx, nil), errors.ErrSchemaValidation)

	var verr errors.ValidationError
	err := v.Validate(ctx, []model.SheetRow{{StudentID: "1", UIN: "STU001", Scores: model.Scores{SecondCA: 11}}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "second_ca", verr.Field)

	err = v.Validate(ctx, []model.SheetRow{{StudentID: "1", UIN: "STU001", Scores: model.Scores{Exam: 71}}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "exam", verr.Field)

	err = v.Validate(ctx, []model.SheetRow{{StudentID: "1", UIN: "a b"}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "uin", verr.Field)

	err = v.Validate(ctx, []model.SheetRow{{StudentID: "1", UIN: "STU001"}, {StudentID: "2", UIN: "STU001"}})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "appears more than once", verr.Message)
}
