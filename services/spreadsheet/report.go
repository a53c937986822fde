package spreadsheet

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/grade"
)

// Report sheet names, in workbook order.
const (
	SheetOverview     = "Overview"
	SheetRankings     = "Rankings"
	SheetSubjects     = "Subjects"
	SheetDistribution = "Distribution"
	SheetClasses      = "Classes"
	SheetInsights     = "Insights"
)

type sheetWriter struct {
	f    *excelize.File
	name string
	row  int
	err  error
}

func (sw *sheetWriter) addRow(values ...interface{}) {
	if sw.err != nil {
		return
	}
	sw.row++
	var cell string
	if cell, sw.err = excelize.CoordinatesToCellName(1, sw.row); sw.err != nil {
		return
	}
	sw.err = sw.f.SetSheetRow(sw.name, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, header []interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}

func newSheet(f *excelize.File, name string, header ...interface{}) (*sheetWriter, error) {
	if name == SheetOverview {
		if err := f.SetSheetName("Sheet1", name); err != nil {
			return nil, err
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	sw := &sheetWriter{f: f, name: name}
	if len(header) > 0 {
		if err := writeHeader(f, name, header); err != nil {
			return nil, err
		}
		sw.row = 1
	}
	return sw, nil
}

func optional(v *float64) interface{} {
	if v == nil {
		return "N/A"
	}
	return *v
}

// WriteReport writes every analytics pass of r as one sheet each.
func WriteReport(w io.Writer, r analytics.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	writers := []func() error{
		func() error {
			sw, err := newSheet(f, SheetOverview, "metric", "value")
			if err != nil {
				return err
			}
			sw.addRow("generated_at", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
			sw.addRow("total_students", r.Overall.TotalStudents)
			sw.addRow("total_subjects", r.Overall.TotalSubjects)
			sw.addRow("total_marks", r.Overall.TotalMarks)
			sw.addRow("overall_average", optional(r.Overall.OverallAverage))
			sw.addRow("a_grade_students", r.Overall.AGradeStudents)
			return sw.err
		},
		func() error {
			sw, err := newSheet(f, SheetRankings,
				"rank", "student_number", "student", "grade_level", "subjects", "marks", "total", "average", "grade")
			if err != nil {
				return err
			}
			for _, rk := range r.Rankings {
				sw.addRow(rk.Rank, rk.StudentNumber, rk.FullName(), rk.GradeLevel, rk.SubjectCount, rk.MarkCount,
					rk.TotalMarks, rk.AverageMarks, string(rk.OverallGrade))
			}
			return sw.err
		},
		func() error {
			sw, err := newSheet(f, SheetSubjects,
				"subject_code", "subject_name", "marks", "average", "highest", "lowest", "a_grades", "pass_rate")
			if err != nil {
				return err
			}
			for _, s := range r.Subjects {
				sw.addRow(s.SubjectCode, s.SubjectName, s.MarkCount, s.AverageMarks, s.HighestMark, s.LowestMark,
					s.AGrades, s.PassRate)
			}
			return sw.err
		},
		func() error {
			sw, err := newSheet(f, SheetDistribution, "grade", "count")
			if err != nil {
				return err
			}
			for _, l := range grade.Letters {
				sw.addRow(string(l), r.Distribution.Count(l))
			}
			sw.addRow("total", r.Distribution.Total)
			return sw.err
		},
		func() error {
			sw, err := newSheet(f, SheetClasses,
				"grade_level", "students", "class_average", "highest_average", "lowest_average", "top_student")
			if err != nil {
				return err
			}
			for _, c := range r.Classes {
				sw.addRow(c.GradeLevel, c.StudentCount, c.ClassAverage, c.HighestAverage, c.LowestAverage, c.TopStudent)
			}
			return sw.err
		},
		func() error {
			sw, err := newSheet(f, SheetInsights, "insight")
			if err != nil {
				return err
			}
			for _, in := range r.Insights {
				sw.addRow(in)
			}
			return sw.err
		},
	}
	for _, write := range writers {
		if err := write(); err != nil {
			return errors.Wrap(err, "writing report workbook")
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}
