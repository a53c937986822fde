// Package spreadsheet reads student rosters from and writes analytics reports to .xlsx workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/student"
)

// StudentColumns is the header row expected by ReadStudents, in template order.
var StudentColumns = []string{
	"student_number", "first_name", "last_name", "email", "phone", "address", "date_of_birth", "grade_level",
}

var requiredStudentColumns = []string{"student_number", "first_name", "last_name", "grade_level"}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// ReadStudents parses the first sheet of an .xlsx roster: a header row naming the columns
// (any order, case-insensitive) and one student per row. Blank rows are skipped.
// Row numbers in errors count data rows from 1, the way student.Service.Import reports them.
func ReadStudents(r io.Reader) ([]student.NewStudent, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "reading workbook"))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(errors.New("missing header row"))
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	var fldErrs []core.FieldError
	for _, col := range requiredStudentColumns {
		if _, ok := index[col]; !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: col, Error: "missing column"})
		}
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid header row"), fldErrs...)
	}

	students := make([]student.NewStudent, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		field := fmt.Sprintf("row %d", len(students)+1)

		ns := student.NewStudent{
			StudentNumber: cell("student_number"),
			FirstName:     cell("first_name"),
			LastName:      cell("last_name"),
			Email:         cell("email"),
			Phone:         cell("phone"),
			Address:       cell("address"),
		}
		if v := cell("grade_level"); v != "" {
			level, err := strconv.ParseFloat(v, 64)
			if err != nil || level != float64(int(level)) {
				fldErrs = append(fldErrs, core.FieldError{Field: field, Error: "grade_level: not a whole number"})
			}
			ns.GradeLevel = int(level)
		}
		if v := cell("date_of_birth"); v != "" {
			dob, err := parseCellDate(v)
			if err != nil {
				fldErrs = append(fldErrs, core.FieldError{Field: field, Error: "date_of_birth: " + err.Error()})
			} else {
				ns.DateOfBirth = &dob
			}
		}
		students = append(students, ns)
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("import rejected"), fldErrs...)
	}
	return students, nil
}

// parseCellDate accepts YYYY-MM-DD text or an Excel date serial.
func parseCellDate(v string) (core.Date, error) {
	if d, err := core.ParseDate(v); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return core.Date{}, errors.Errorf("expected YYYY-MM-DD, got %q", v)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return core.Date{}, err
	}
	return core.NewDate(t.Year(), t.Month(), t.Day()), nil
}

// WriteStudentTemplate writes an empty roster with the expected header row.
func WriteStudentTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Students"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]interface{}, len(StudentColumns))
	for i, c := range StudentColumns {
		header[i] = c
	}
	if err := writeHeader(f, sheet, header); err != nil {
		return err
	}
	return f.Write(w)
}
