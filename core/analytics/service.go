package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/grade"
	"github.com/thusykanna/school-management-system-v1/core/mark"
	"github.com/thusykanna/school-management-system-v1/core/student"
)

// Cache keys
const (
	keyOverall      = "overall"
	keyRankings     = "rankings"
	keySubjects     = "subjects"
	keyDistribution = "distribution"
	keyClasses      = "classes"
	keyInsights     = "insights"
	keySummary      = "summary"
)

type (
	Repository interface {
		Totals(ctx context.Context) (Totals, error)
		// MarkFacts returns every mark joined with its student and subject.
		MarkFacts(ctx context.Context) ([]Fact, error)
		// Students returns every student, marks or not.
		Students(ctx context.Context) ([]StudentRef, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id int) (student.Student, error)
	}

	MarkLister interface {
		QueryMarks(ctx context.Context, filter mark.QueryFilter) ([]mark.Listing, error)
	}

	ActivityFeed interface {
		Recent(ctx context.Context, limit int) ([]activity.Entry, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		marks    MarkLister
		feed     ActivityFeed
		cache    core.Cache
		cacheTTL time.Duration
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students StudentGetter,
	marks MarkLister,
	feed ActivityFeed,
	cache core.Cache,
	cacheTTL time.Duration,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		marks:    marks,
		feed:     feed,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// cached fills dst from the cache, or runs load (which must fill dst) and caches the result.
// Entries are keyed by the generation read before loading: a result computed while a write purged
// the cache lands under a stale generation and is never read back.
// Cache failures only cost a recomputation.
func (svc *Service) cached(ctx context.Context, key string, dst interface{}, load func() error) error {
	gen, err := svc.cache.Generation(ctx)
	if err != nil {
		svc.logger.Warn("analytics cache generation read failed", errors.Wrap(err, key))
		return load()
	}
	genKey := fmt.Sprintf("%d:%s", gen, key)

	found, err := svc.cache.Get(ctx, genKey, dst)
	if err != nil {
		svc.logger.Warn("analytics cache read failed", errors.Wrap(err, key))
	} else if found {
		return nil
	}

	if err = load(); err != nil {
		return err
	}
	if err = svc.cache.Set(ctx, genKey, dst, svc.cacheTTL); err != nil {
		svc.logger.Warn("analytics cache write failed", errors.Wrap(err, key))
	}
	return nil
}

func (svc *Service) facts(ctx context.Context) ([]Fact, error) {
	facts, err := svc.repo.MarkFacts(ctx)
	return facts, errors.Wrap(err, "loading mark facts")
}

func (svc *Service) Overall(ctx context.Context) (OverallStats, error) {
	var res OverallStats
	if _, err := core.RequireIdentity(ctx); err != nil {
		return res, err
	}
	err := svc.cached(ctx, keyOverall, &res, func() error {
		totals, err := svc.repo.Totals(ctx)
		if err != nil {
			return errors.Wrap(err, "counting totals")
		}
		facts, err := svc.facts(ctx)
		if err != nil {
			return err
		}
		res = ComputeOverall(totals, facts)
		return nil
	})
	return res, err
}

func (svc *Service) Rankings(ctx context.Context) ([]StudentRanking, error) {
	var res []StudentRanking
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	err := svc.cached(ctx, keyRankings, &res, func() error {
		facts, err := svc.facts(ctx)
		res = RankStudents(facts)
		return err
	})
	return res, err
}

func (svc *Service) SubjectAnalysis(ctx context.Context) ([]SubjectStats, error) {
	var res []SubjectStats
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	err := svc.cached(ctx, keySubjects, &res, func() error {
		facts, err := svc.facts(ctx)
		res = AnalyzeSubjects(facts)
		return err
	})
	return res, err
}

func (svc *Service) GradeDistribution(ctx context.Context) (Distribution, error) {
	var res Distribution
	if _, err := core.RequireIdentity(ctx); err != nil {
		return res, err
	}
	err := svc.cached(ctx, keyDistribution, &res, func() error {
		facts, err := svc.facts(ctx)
		res = Distribute(facts)
		return err
	})
	return res, err
}

func (svc *Service) ClassPerformance(ctx context.Context) ([]ClassStats, error) {
	var res []ClassStats
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	err := svc.cached(ctx, keyClasses, &res, func() error {
		facts, err := svc.facts(ctx)
		res = ClassPerformance(facts)
		return err
	})
	return res, err
}

func (svc *Service) Insights(ctx context.Context) ([]string, error) {
	var res []string
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	err := svc.cached(ctx, keyInsights, &res, func() error {
		facts, err := svc.facts(ctx)
		if err != nil {
			return err
		}
		res = Insights(AnalyzeSubjects(facts), facts, ClassPerformance(facts))
		return nil
	})
	return res, err
}

// Report computes every pass from a single read, for exports.
func (svc *Service) Report(ctx context.Context) (Report, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Report{}, err
	}
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return Report{}, errors.Wrap(err, "counting totals")
	}
	facts, err := svc.facts(ctx)
	if err != nil {
		return Report{}, err
	}
	r := BuildReport(totals, facts)
	r.GeneratedAt = time.Now().UTC()
	return r, nil
}

// Summary lists every student, including those without marks (last), by mean desc then first name.
func (svc *Service) Summary(ctx context.Context) ([]StudentSummary, error) {
	var res []StudentSummary
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	err := svc.cached(ctx, keySummary, &res, func() error {
		refs, err := svc.repo.Students(ctx)
		if err != nil {
			return errors.Wrap(err, "listing students")
		}
		facts, err := svc.facts(ctx)
		if err != nil {
			return err
		}
		res = Summarize(refs, facts)
		return nil
	})
	return res, err
}

// Summarize joins students with their per-student aggregates.
func Summarize(refs []StudentRef, facts []Fact) []StudentSummary {
	aggs := make(map[int]*studentAgg)
	for _, agg := range byStudent(facts) {
		aggs[agg.StudentID] = agg
	}

	res := make([]StudentSummary, 0, len(refs))
	for _, ref := range refs {
		row := StudentSummary{StudentRef: ref}
		if agg, ok := aggs[ref.StudentID]; ok {
			letter := grade.Classify(agg.mean)
			row.SubjectCount = len(agg.subjects)
			row.MarkCount = len(agg.values)
			row.AverageMarks = float(agg.mean)
			row.OverallGrade = &letter
		}
		res = append(res, row)
	}
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		switch {
		case a.AverageMarks != nil && b.AverageMarks == nil:
			return true
		case a.AverageMarks == nil && b.AverageMarks != nil:
			return false
		case a.AverageMarks != nil && *a.AverageMarks != *b.AverageMarks:
			return *a.AverageMarks > *b.AverageMarks
		case a.FirstName != b.FirstName:
			return a.FirstName < b.FirstName
		}
		return a.StudentID < b.StudentID
	})
	return res
}

// StudentReport returns one student's marks and statistics; statistics are null without marks.
func (svc *Service) StudentReport(ctx context.Context, studentID int) (StudentReport, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return StudentReport{}, err
	}
	stud, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	listings, err := svc.marks.QueryMarks(ctx, mark.QueryFilter{StudentID: studentID})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying student marks")
	}

	vals := make([]float64, 0, len(listings))
	subjects := make(map[int]struct{})
	for i := range listings {
		listings[i].LetterGrade = grade.Classify(listings[i].Value)
		vals = append(vals, listings[i].Value)
		subjects[listings[i].SubjectID] = struct{}{}
	}

	rs := ReportStats{TotalSubjects: len(subjects), TotalMarks: len(vals)}
	if len(vals) > 0 {
		avg := mean(vals)
		letter := grade.Classify(avg)
		rs.AverageMarks = float(avg)
		rs.OverallGrade = &letter
		rs.HighestMark = float(maxOf(vals))
		rs.LowestMark = float(minOf(vals))
	}
	return StudentReport{Student: stud, Marks: listings, Stats: rs}, nil
}

// Dashboard returns the headline counts, the overall letter grade and the latest activity.
func (svc *Service) Dashboard(ctx context.Context, activityLimit int) (Dashboard, error) {
	overall, err := svc.Overall(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting totals")
	}
	entries, err := svc.feed.Recent(ctx, activityLimit)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "loading recent activity")
	}

	d := Dashboard{
		TotalStudents:    totals.Students,
		TotalSubjects:    totals.Subjects,
		TotalEnrollments: totals.Enrollments,
		AverageGrade:     "N/A",
		RecentActivity:   entries,
	}
	if overall.OverallAverage != nil {
		d.AverageGrade = string(grade.Classify(*overall.OverallAverage))
	}
	return d, nil
}
