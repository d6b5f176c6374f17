package dispatch

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/user/syncengine/pkg/syncmodel"
)

// cronValidator only checks an expression's shape; the sweep itself matches
// strings exactly rather than computing next-fire times (spec §5, §9:
// "CronSweep... exact string match — no interval math").
var cronValidator = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpression reports whether expr parses as a standard 5-field
// cron expression, used to reject malformed schedules at config time.
func ValidateCronExpression(expr string) error {
	_, err := cronValidator.Parse(expr)
	return err
}

// CronSweep enumerates enabled jobs whose CronSchedule equals firing
// exactly and runs batch 1 of each, in dependency order, sequentially
// (spec §5 "the scheduler MUST honor dependency order: spreadsheet->
// warehouse jobs complete before dependent warehouse->sink jobs").
func (s *Server) CronSweep(ctx context.Context, firing string) error {
	jobs, err := s.Jobs.ListJobs(ctx)
	if err != nil {
		return err
	}

	var due []syncmodel.Job
	for _, job := range jobs {
		if job.Enabled && job.CronSchedule == firing {
			due = append(due, job)
		}
	}
	if len(due) == 0 {
		return nil
	}

	for _, job := range orderByDependency(due) {
		if _, err := s.Engine.RunBatch(ctx, job, "", 1); err != nil {
			return err
		}
	}
	return nil
}

// orderByDependency topologically sorts jobs so that every job named in
// another job's DependsOnSheetJobs runs first. Ties keep input order.
func orderByDependency(jobs []syncmodel.Job) []syncmodel.Job {
	byID := make(map[string]syncmodel.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	visited := make(map[string]bool, len(jobs))
	var ordered []syncmodel.Job

	var visit func(job syncmodel.Job)
	visit = func(job syncmodel.Job) {
		if visited[job.ID] {
			return
		}
		visited[job.ID] = true
		for _, depID := range job.DependsOnSheetJobs {
			if dep, ok := byID[depID]; ok {
				visit(dep)
			}
		}
		ordered = append(ordered, job)
	}

	for _, j := range jobs {
		visit(j)
	}
	return ordered
}
