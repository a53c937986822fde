package analytics

import (
	"time"

	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/grade"
	"github.com/thusykanna/school-management-system-v1/core/mark"
	"github.com/thusykanna/school-management-system-v1/core/student"
)

// StudentRef identifies a student in aggregated outputs.
type StudentRef struct {
	StudentID     int    `json:"student_id" db:"student_id"`
	StudentNumber string `json:"student_number" db:"student_number"`
	FirstName     string `json:"first_name" db:"first_name"`
	LastName      string `json:"last_name" db:"last_name"`
	GradeLevel    int    `json:"grade_level" db:"grade_level"`
}

func (ref StudentRef) FullName() string {
	return ref.FirstName + " " + ref.LastName
}

// Fact is one mark row joined with its student and subject; every pass aggregates these.
type Fact struct {
	StudentRef
	MarkID      int     `db:"mark_id"`
	SubjectID   int     `db:"subject_id"`
	SubjectCode string  `db:"subject_code"`
	SubjectName string  `db:"subject_name"`
	Value       float64 `db:"marks"`
}

type Totals struct {
	Students    int `db:"students"`
	Subjects    int `db:"subjects"`
	Enrollments int `db:"enrollments"`
}

type OverallStats struct {
	TotalStudents  int      `json:"total_students"`
	TotalSubjects  int      `json:"total_subjects"`
	TotalMarks     int      `json:"total_marks"`
	OverallAverage *float64 `json:"overall_average"` // null without marks
	AGradeStudents int      `json:"a_grade_students"`
}

type StudentRanking struct {
	StudentRef
	Rank         int          `json:"rank"`
	SubjectCount int          `json:"subject_count"`
	MarkCount    int          `json:"mark_count"`
	TotalMarks   float64      `json:"total_marks"`
	AverageMarks float64      `json:"average_marks"`
	OverallGrade grade.Letter `json:"overall_grade"`
}

type SubjectStats struct {
	SubjectID    int     `json:"subject_id"`
	SubjectCode  string  `json:"subject_code"`
	SubjectName  string  `json:"subject_name"`
	MarkCount    int     `json:"mark_count"`
	AverageMarks float64 `json:"average_marks"`
	HighestMark  float64 `json:"highest_mark"`
	LowestMark   float64 `json:"lowest_mark"`
	AGrades      int     `json:"a_grades"`
	PassRate     float64 `json:"pass_rate"`
}

// Distribution counts marks per letter band.
type Distribution struct {
	A     int `json:"A"`
	B     int `json:"B"`
	S     int `json:"S"`
	F     int `json:"F"`
	Total int `json:"total"`
}

// Count returns the number of marks in band l.
func (d Distribution) Count(l grade.Letter) int {
	switch l {
	case grade.A:
		return d.A
	case grade.B:
		return d.B
	case grade.S:
		return d.S
	default:
		return d.F
	}
}

type ClassStats struct {
	GradeLevel     int     `json:"grade_level"`
	StudentCount   int     `json:"student_count"`
	ClassAverage   float64 `json:"class_average"`
	HighestAverage float64 `json:"highest_average"`
	LowestAverage  float64 `json:"lowest_average"`
	TopStudentID   int     `json:"top_student_id"`
	TopStudent     string  `json:"top_student"`
}

// Report is every analytics pass computed from a single snapshot of marks.
type Report struct {
	GeneratedAt  time.Time        `json:"generated_at"`
	Overall      OverallStats     `json:"overall"`
	Rankings     []StudentRanking `json:"rankings"`
	Subjects     []SubjectStats   `json:"subjects"`
	Distribution Distribution     `json:"distribution"`
	Classes      []ClassStats     `json:"classes"`
	Insights     []string         `json:"insights"`
}

type StudentSummary struct {
	StudentRef
	SubjectCount int           `json:"subject_count"`
	MarkCount    int           `json:"mark_count"`
	AverageMarks *float64      `json:"average_marks"`
	OverallGrade *grade.Letter `json:"overall_grade"`
}

type ReportStats struct {
	TotalSubjects int           `json:"total_subjects"`
	TotalMarks    int           `json:"total_marks"`
	AverageMarks  *float64      `json:"average_marks"`
	OverallGrade  *grade.Letter `json:"overall_grade"`
	HighestMark   *float64      `json:"highest_mark"`
	LowestMark    *float64      `json:"lowest_mark"`
}

// StudentReport is one student's marks with their letter grades and summary statistics.
type StudentReport struct {
	Student student.Student `json:"student"`
	Marks   []mark.Listing  `json:"marks"`
	Stats   ReportStats     `json:"stats"`
}

type Dashboard struct {
	TotalStudents    int              `json:"total_students"`
	TotalSubjects    int              `json:"total_subjects"`
	TotalEnrollments int              `json:"total_enrollments"`
	AverageGrade     string           `json:"average_grade"` // letter of the overall average, "N/A" without marks
	RecentActivity   []activity.Entry `json:"recent_activity"`
}
