package analytics

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/thusykanna/school-management-system-v1/core/grade"
)

// The functions below are the aggregation passes. They are pure: the same facts always give the
// same output, in the same order, and an empty input gives empty (never nil) outputs.

func mean(vals []float64) float64 {
	m, _ := stats.Mean(vals)
	return m
}

func sum(vals []float64) float64 {
	s, _ := stats.Sum(vals)
	return s
}

func maxOf(vals []float64) float64 {
	m, _ := stats.Max(vals)
	return m
}

func minOf(vals []float64) float64 {
	m, _ := stats.Min(vals)
	return m
}

func float(f float64) *float64 {
	return &f
}

type studentAgg struct {
	StudentRef
	values   []float64
	subjects map[int]struct{}
	mean     float64
	total    float64
}

// byStudent groups fact values per student, ordered by student id.
func byStudent(facts []Fact) []*studentAgg {
	idx := make(map[int]*studentAgg)
	for _, f := range facts {
		agg, ok := idx[f.StudentID]
		if !ok {
			agg = &studentAgg{StudentRef: f.StudentRef, subjects: make(map[int]struct{})}
			idx[f.StudentID] = agg
		}
		agg.values = append(agg.values, f.Value)
		agg.subjects[f.SubjectID] = struct{}{}
	}

	aggs := make([]*studentAgg, 0, len(idx))
	for _, agg := range idx {
		agg.mean = mean(agg.values)
		agg.total = sum(agg.values)
		aggs = append(aggs, agg)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].StudentID < aggs[j].StudentID })
	return aggs
}

func values(facts []Fact) []float64 {
	vals := make([]float64, 0, len(facts))
	for _, f := range facts {
		vals = append(vals, f.Value)
	}
	return vals
}

// ComputeOverall returns school-wide counts, the mean of all marks and the number of students
// whose own mean is an A.
func ComputeOverall(totals Totals, facts []Fact) OverallStats {
	overall := OverallStats{
		TotalStudents: totals.Students,
		TotalSubjects: totals.Subjects,
		TotalMarks:    len(facts),
	}
	if len(facts) == 0 {
		return overall
	}
	overall.OverallAverage = float(mean(values(facts)))
	for _, agg := range byStudent(facts) {
		if grade.Classify(agg.mean) == grade.A {
			overall.AGradeStudents++
		}
	}
	return overall
}

// RankStudents orders students having marks by mean desc, then total desc, then student id asc.
func RankStudents(facts []Fact) []StudentRanking {
	aggs := byStudent(facts)
	sort.SliceStable(aggs, func(i, j int) bool {
		a, b := aggs[i], aggs[j]
		if a.mean != b.mean {
			return a.mean > b.mean
		}
		if a.total != b.total {
			return a.total > b.total
		}
		return a.StudentID < b.StudentID
	})

	rankings := make([]StudentRanking, 0, len(aggs))
	for i, agg := range aggs {
		rankings = append(rankings, StudentRanking{
			StudentRef:   agg.StudentRef,
			Rank:         i + 1,
			SubjectCount: len(agg.subjects),
			MarkCount:    len(agg.values),
			TotalMarks:   agg.total,
			AverageMarks: agg.mean,
			OverallGrade: grade.Classify(agg.mean),
		})
	}
	return rankings
}

// AnalyzeSubjects returns per-subject statistics for subjects having marks,
// ordered by mean desc then subject id asc.
func AnalyzeSubjects(facts []Fact) []SubjectStats {
	type subjectAgg struct {
		SubjectStats
		values []float64
	}
	idx := make(map[int]*subjectAgg)
	for _, f := range facts {
		agg, ok := idx[f.SubjectID]
		if !ok {
			agg = &subjectAgg{SubjectStats: SubjectStats{
				SubjectID:   f.SubjectID,
				SubjectCode: f.SubjectCode,
				SubjectName: f.SubjectName,
			}}
			idx[f.SubjectID] = agg
		}
		agg.values = append(agg.values, f.Value)
	}

	subjects := make([]SubjectStats, 0, len(idx))
	for _, agg := range idx {
		var passed int
		for _, v := range agg.values {
			if grade.Classify(v) == grade.A {
				agg.AGrades++
			}
			if grade.IsPass(v) {
				passed++
			}
		}
		agg.MarkCount = len(agg.values)
		agg.AverageMarks = mean(agg.values)
		agg.HighestMark = maxOf(agg.values)
		agg.LowestMark = minOf(agg.values)
		agg.PassRate = 100 * float64(passed) / float64(agg.MarkCount)
		subjects = append(subjects, agg.SubjectStats)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].AverageMarks != subjects[j].AverageMarks {
			return subjects[i].AverageMarks > subjects[j].AverageMarks
		}
		return subjects[i].SubjectID < subjects[j].SubjectID
	})
	return subjects
}

// Distribute counts raw marks per letter band.
func Distribute(facts []Fact) Distribution {
	var d Distribution
	for _, f := range facts {
		switch grade.Classify(f.Value) {
		case grade.A:
			d.A++
		case grade.B:
			d.B++
		case grade.S:
			d.S++
		default:
			d.F++
		}
	}
	d.Total = len(facts)
	return d
}

// ClassPerformance aggregates per-student means by grade level, ordered by level.
// The top student is the highest mean, lowest student id on ties.
func ClassPerformance(facts []Fact) []ClassStats {
	levels := make(map[int][]*studentAgg)
	for _, agg := range byStudent(facts) { // student id order
		levels[agg.GradeLevel] = append(levels[agg.GradeLevel], agg)
	}

	classes := make([]ClassStats, 0, len(levels))
	for level, aggs := range levels {
		means := make([]float64, 0, len(aggs))
		top := aggs[0]
		for _, agg := range aggs {
			means = append(means, agg.mean)
			if agg.mean > top.mean {
				top = agg
			}
		}
		classes = append(classes, ClassStats{
			GradeLevel:     level,
			StudentCount:   len(aggs),
			ClassAverage:   mean(means),
			HighestAverage: maxOf(means),
			LowestAverage:  minOf(means),
			TopStudentID:   top.StudentID,
			TopStudent:     top.FullName(),
		})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].GradeLevel < classes[j].GradeLevel })
	return classes
}

// PassRate is the share of all marks reaching the pass mark, in percent. ok is false without marks.
func PassRate(facts []Fact) (rate float64, ok bool) {
	if len(facts) == 0 {
		return 0, false
	}
	var passed int
	for _, f := range facts {
		if grade.IsPass(f.Value) {
			passed++
		}
	}
	return 100 * float64(passed) / float64(len(facts)), true
}

// Insights derives the narrative lines. Each line is omitted when its data set is empty.
// `subjects` and `classes` must come from AnalyzeSubjects and ClassPerformance.
func Insights(subjects []SubjectStats, facts []Fact, classes []ClassStats) []string {
	insights := make([]string, 0, 4)

	if len(subjects) > 0 {
		best := subjects[0]
		worst := subjects[0]
		for _, s := range subjects[1:] {
			if s.AverageMarks < worst.AverageMarks ||
				(s.AverageMarks == worst.AverageMarks && s.SubjectID < worst.SubjectID) {
				worst = s
			}
		}
		insights = append(insights,
			fmt.Sprintf("Highest performing subject: %s with average of %.1f", best.SubjectName, best.AverageMarks),
			fmt.Sprintf("Subject needing attention: %s with average of %.1f", worst.SubjectName, worst.AverageMarks),
		)
	}

	if rate, ok := PassRate(facts); ok {
		insights = append(insights, fmt.Sprintf("Overall school pass rate: %.1f%%", rate))
	}

	if len(classes) > 0 {
		top := classes[0]
		for _, c := range classes[1:] {
			if c.ClassAverage > top.ClassAverage {
				top = c
			}
		}
		insights = append(insights,
			fmt.Sprintf("Top performing grade level: Grade %d with class average of %.1f", top.GradeLevel, top.ClassAverage))
	}
	return insights
}

// BuildReport runs every pass over one snapshot.
func BuildReport(totals Totals, facts []Fact) Report {
	subjects := AnalyzeSubjects(facts)
	classes := ClassPerformance(facts)
	return Report{
		Overall:      ComputeOverall(totals, facts),
		Rankings:     RankStudents(facts),
		Subjects:     subjects,
		Distribution: Distribute(facts),
		Classes:      classes,
		Insights:     Insights(subjects, facts, classes),
	}
}
