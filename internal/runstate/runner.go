package runstate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"binbird-backend/internal/metrics"
	"binbird-backend/internal/models"
)

var (
	ErrNoPlannedRun       = errors.New("no planned run")
	ErrNoJobs             = errors.New("no usable jobs in plan")
	ErrJobIndexOutOfRange = errors.New("job index out of range")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrRunInProgress      = errors.New("a run is already in progress")
	ErrMissingCoordinates = errors.New("start and end need coordinates or a geocodable address")
	ErrPlanNotPersisted   = errors.New("plan could not be stored")
)

// Optimizer orders waypoints between a start and an end point
type Optimizer interface {
	Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error)
}

// Geocoder resolves addresses for plans submitted without coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, string, error)
	ReverseGeocode(ctx context.Context, point models.Coordinates) (string, error)
}

// RunRecorder keeps a durable record of finished runs
type RunRecorder interface {
	RecordRun(ctx context.Context, run models.RunSessionRecord, reason models.RunEndReason) error
}

// RunNotifier tells someone a run has finished
type RunNotifier interface {
	NotifyRunEnded(ctx context.Context, stats models.RunStats, reason models.RunEndReason) error
}

// RunnerConfig wires a Runner's collaborators. Only Repository is required.
type RunnerConfig struct {
	Repository Repository
	Optimizer  Optimizer
	Geocoder   Geocoder
	Recorder   RunRecorder
	Notifier   RunNotifier
	Day        OperationalDay
	Now        func() time.Time
	// OnChange is called with the new menu state after every mutation
	OnChange func(models.RunMenuState)
}

// Runner drives the run lifecycle:
// no plan -> planned -> started (cursor 0..N-1) -> ended -> summary read -> cleared
type Runner struct {
	repo      Repository
	optimizer Optimizer
	geocoder  Geocoder
	recorder  RunRecorder
	notifier  RunNotifier
	day       OperationalDay
	now       func() time.Time
	onChange  func(models.RunMenuState)
}

// PlanInput is a request to build a run from raw jobs
type PlanInput struct {
	Start        *models.Coordinates
	End          *models.Coordinates
	StartAddress *string
	EndAddress   *string
	Jobs         []models.RawJob
}

// RunProgress is the state after a lifecycle step
type RunProgress struct {
	Plan    *models.PlannedRunPayload `json:"plan"`
	Session *models.RunSessionRecord  `json:"session"`
	Menu    models.RunMenuState       `json:"menu"`
	Ended   bool                      `json:"ended"`
}

// NewRunner creates a Runner
func NewRunner(cfg RunnerConfig) *Runner {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		repo:      cfg.Repository,
		optimizer: cfg.Optimizer,
		geocoder:  cfg.Geocoder,
		recorder:  cfg.Recorder,
		notifier:  cfg.Notifier,
		day:       cfg.Day,
		now:       now,
		onChange:  cfg.OnChange,
	}
}

// Plan normalizes the jobs, asks the optimizer for a stop order and stores
// the plan. Returns the stored plan and the route polyline.
func (r *Runner) Plan(ctx context.Context, in PlanInput) (*models.PlannedRunPayload, string, error) {
	if current := r.repo.ReadPlannedRun(); current != nil && current.HasStarted {
		return nil, "", ErrRunInProgress
	}

	jobs := make([]models.Job, 0, len(in.Jobs))
	for i, raw := range in.Jobs {
		job, warnings := NormalizeJobWithWarnings(raw)
		if len(warnings) > 0 {
			log.Printf("⚠️  [plan] job #%d (%s) defaulted: %s", i, job.ID, strings.Join(warnings, "; "))
		}
		if job.ID == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return nil, "", ErrNoJobs
	}

	start, startAddress, err := r.resolvePoint(ctx, in.Start, in.StartAddress)
	if err != nil {
		return nil, "", fmt.Errorf("resolve start: %w", err)
	}
	end, endAddress := start, startAddress
	if in.End != nil || in.EndAddress != nil {
		end, endAddress, err = r.resolvePoint(ctx, in.End, in.EndAddress)
		if err != nil {
			return nil, "", fmt.Errorf("resolve end: %w", err)
		}
	}

	polyline := ""
	if r.optimizer != nil {
		req := models.OptimizeRequest{Start: start, End: end, Waypoints: make([]models.Coordinates, len(jobs))}
		for i, job := range jobs {
			req.Waypoints[i] = models.Coordinates{Lat: job.Lat, Lng: job.Lng}
		}
		result, err := r.optimizer.Optimize(ctx, req)
		if err != nil {
			return nil, "", fmt.Errorf("optimize route: %w", err)
		}
		jobs = applyOrder(jobs, result)
		polyline = result.Polyline
	}

	payload := models.PlannedRunPayload{
		Start:        start,
		End:          end,
		Jobs:         jobs,
		StartAddress: startAddress,
		EndAddress:   endAddress,
		CreatedAt:    r.now(),
	}
	if !r.repo.WritePlannedRun(payload) {
		return nil, "", ErrPlanNotPersisted
	}
	metrics.PlansWritten.Inc()

	log.Printf("🗺️  Run planned: %d stops", len(jobs))
	r.changed()
	return r.repo.ReadPlannedRun(), polyline, nil
}

// Start marks the plan started and opens a run session
func (r *Runner) Start(ctx context.Context) (*RunProgress, error) {
	plan := r.repo.ReadPlannedRun()
	if plan == nil {
		return nil, ErrNoPlannedRun
	}

	if !plan.HasStarted {
		if !r.repo.MarkPlannedRunStarted() {
			return nil, ErrPlanNotPersisted
		}
		metrics.RunsStarted.Inc()
		log.Printf("🚀 Run started: %d stops", len(plan.Jobs))
	}
	r.ensureSession(plan)

	r.changed()
	return r.progress(false), nil
}

// SetJobStatus applies an arrival transition (scheduled -> en_route ->
// on_site). Terminal statuses are routed through CompleteJob/SkipJob.
func (r *Runner) SetJobStatus(ctx context.Context, idx int, status models.JobStatus) (*RunProgress, error) {
	switch status {
	case models.JobStatusCompleted:
		return r.CompleteJob(ctx, idx, nil)
	case models.JobStatusSkipped:
		return r.SkipJob(ctx, idx)
	}

	plan, err := r.planAt(idx)
	if err != nil {
		return nil, err
	}
	current := plan.Jobs[idx].Status
	if current == status {
		return r.progress(false), nil
	}
	if !CanTransition(current, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	plan.Jobs[idx].Status = status
	plan.NextIdx = idx
	if !r.repo.WritePlannedRun(*plan) {
		return nil, ErrPlanNotPersisted
	}
	r.changed()
	return r.progress(false), nil
}

// CompleteJob marks job idx completed, advances the cursor and updates the
// session counters. Completing the last pending job ends the run.
func (r *Runner) CompleteJob(ctx context.Context, idx int, photoPath *string) (*RunProgress, error) {
	plan, err := r.planAt(idx)
	if err != nil {
		return nil, err
	}
	job := &plan.Jobs[idx]
	if job.Status == models.JobStatusSkipped {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, models.JobStatusCompleted)
	}

	if job.Status != models.JobStatusCompleted {
		metrics.JobsCompleted.WithLabelValues(string(models.JobStatusCompleted)).Inc()
	}
	job.Status = models.JobStatusCompleted
	today := r.day.Key(r.now())
	job.LastCompletedOn = &today
	if photoPath != nil && *photoPath != "" {
		job.PhotoPath = photoPath
	}

	return r.advance(ctx, plan, idx)
}

// SkipJob marks job idx skipped and advances the cursor
func (r *Runner) SkipJob(ctx context.Context, idx int) (*RunProgress, error) {
	plan, err := r.planAt(idx)
	if err != nil {
		return nil, err
	}
	job := &plan.Jobs[idx]
	if job.Status == models.JobStatusCompleted {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, models.JobStatusSkipped)
	}
	if job.Status != models.JobStatusSkipped {
		metrics.JobsCompleted.WithLabelValues(string(models.JobStatusSkipped)).Inc()
	}
	job.Status = models.JobStatusSkipped

	return r.advance(ctx, plan, idx)
}

// End stamps the session end time once, clears the plan and reports the
// finished run. A plan that was never started cannot be ended; a session
// that already ended is left as it is.
func (r *Runner) End(ctx context.Context, reason models.RunEndReason) (*RunProgress, error) {
	plan := r.repo.ReadPlannedRun()
	session := r.repo.ReadRunSession()
	if plan == nil && session == nil {
		return nil, ErrNoPlannedRun
	}

	started := plan != nil && plan.HasStarted
	active := IsRunSessionActive(session)
	if plan != nil && !started && !active {
		return nil, fmt.Errorf("%w: the planned run has not started", ErrInvalidTransition)
	}
	if started && !active {
		session = &models.RunSessionRecord{StartedAt: FormatTimestamp(r.now())}
		active = true
	}

	if active {
		if started {
			session.TotalJobs = len(plan.Jobs)
			session.CompletedJobs = plan.CompletedCount()
		}
		endedAt := FormatTimestamp(r.now())
		session.EndedAt = &endedAt
		r.repo.WriteRunSession(*session)
	}
	if started {
		r.repo.ClearPlannedRun()
	}

	if active {
		metrics.RunsEnded.WithLabelValues(string(reason)).Inc()
		log.Printf("🏁 Run ended (%s): %d/%d jobs", reason, session.CompletedJobs, session.TotalJobs)
		r.report(ctx, *session, reason)
	}

	r.changed()
	progress := r.progress(true)
	if progress.Session == nil {
		progress.Session = session
	}
	return progress, nil
}

// ClearPlan discards a plan that has not been started
func (r *Runner) ClearPlan() error {
	plan := r.repo.ReadPlannedRun()
	if plan == nil {
		return nil
	}
	if plan.HasStarted {
		return ErrRunInProgress
	}
	r.repo.ClearPlannedRun()
	log.Println("🗑️  Planned run discarded")
	r.changed()
	return nil
}

// Menu derives the menu flags from the stored state
func (r *Runner) Menu() models.RunMenuState {
	return DeriveRunMenuState(r.repo.ReadPlannedRun(), r.repo.ReadRunSession())
}

// Summary returns the stats of the current session. A finished session is
// cleared once read so the summary shows exactly once.
func (r *Runner) Summary() *models.RunStats {
	session := r.repo.ReadRunSession()
	if session == nil {
		return nil
	}
	stats := ComputeRunStats(*session)
	if !IsRunSessionActive(session) {
		r.repo.ClearRunSession()
		r.changed()
	}
	return &stats
}

// CanTransition reports whether a job may move from one status to another.
// Arrival states only move forward; terminal states never move.
func CanTransition(from, to models.JobStatus) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to.IsTerminal() {
		return true
	}
	return statusRank(to) > statusRank(from)
}

func statusRank(s models.JobStatus) int {
	switch s {
	case models.JobStatusEnRoute:
		return 1
	case models.JobStatusOnSite:
		return 2
	default:
		return 0
	}
}

func (r *Runner) planAt(idx int) (*models.PlannedRunPayload, error) {
	plan := r.repo.ReadPlannedRun()
	if plan == nil {
		return nil, ErrNoPlannedRun
	}
	if idx < 0 || idx >= len(plan.Jobs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrJobIndexOutOfRange, idx, len(plan.Jobs))
	}
	return plan, nil
}

// advance moves the cursor past a job that just reached a terminal status
// and ends the run when nothing is pending
func (r *Runner) advance(ctx context.Context, plan *models.PlannedRunPayload, idx int) (*RunProgress, error) {
	if !plan.HasStarted {
		plan.HasStarted = true
		metrics.RunsStarted.Inc()
	}

	next := nextPending(plan.Jobs, idx)
	if next < 0 {
		// Persist the final job state so End counts it
		plan.NextIdx = len(plan.Jobs) - 1
		if !r.repo.WritePlannedRun(*plan) {
			return nil, ErrPlanNotPersisted
		}
		r.ensureSession(plan)
		return r.End(ctx, models.RunEndCompleted)
	}

	plan.NextIdx = next
	if !r.repo.WritePlannedRun(*plan) {
		return nil, ErrPlanNotPersisted
	}
	session := r.ensureSession(plan)
	session.TotalJobs = len(plan.Jobs)
	session.CompletedJobs = plan.CompletedCount()
	r.repo.WriteRunSession(*session)

	r.changed()
	return r.progress(false), nil
}

// ensureSession returns the active session, opening one for plan if needed
func (r *Runner) ensureSession(plan *models.PlannedRunPayload) *models.RunSessionRecord {
	session := r.repo.ReadRunSession()
	if session != nil && IsRunSessionActive(session) {
		return session
	}
	session = &models.RunSessionRecord{
		StartedAt:     FormatTimestamp(r.now()),
		TotalJobs:     len(plan.Jobs),
		CompletedJobs: plan.CompletedCount(),
	}
	r.repo.WriteRunSession(*session)
	return session
}

func (r *Runner) resolvePoint(ctx context.Context, point *models.Coordinates, address *string) (models.Coordinates, *string, error) {
	if address != nil && strings.TrimSpace(*address) == "" {
		address = nil
	}

	if point != nil {
		if _, ok := parseCoordinates(*point); !ok {
			return models.Coordinates{}, nil, ErrMissingCoordinates
		}
		if address == nil && r.geocoder != nil {
			if label, err := r.geocoder.ReverseGeocode(ctx, *point); err == nil && label != "" {
				address = &label
			} else if err != nil {
				log.Printf("⚠️  Reverse geocoding failed: %v", err)
			}
		}
		return *point, address, nil
	}

	if address == nil || r.geocoder == nil {
		return models.Coordinates{}, nil, ErrMissingCoordinates
	}
	resolved, label, err := r.geocoder.Geocode(ctx, *address)
	if err != nil {
		return models.Coordinates{}, nil, fmt.Errorf("%w: %v", ErrMissingCoordinates, err)
	}
	if label != "" {
		address = &label
	}
	return resolved, address, nil
}

func (r *Runner) report(ctx context.Context, session models.RunSessionRecord, reason models.RunEndReason) {
	if r.recorder != nil {
		if err := r.recorder.RecordRun(ctx, session, reason); err != nil {
			log.Printf("⚠️  Failed to record run history: %v", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyRunEnded(ctx, ComputeRunStats(session), reason); err != nil {
			log.Printf("⚠️  Failed to send run-ended notification: %v", err)
		}
	}
}

func (r *Runner) progress(ended bool) *RunProgress {
	plan := r.repo.ReadPlannedRun()
	session := r.repo.ReadRunSession()
	return &RunProgress{
		Plan:    plan,
		Session: session,
		Menu:    DeriveRunMenuState(plan, session),
		Ended:   ended,
	}
}

func (r *Runner) changed() {
	if r.onChange != nil {
		r.onChange(r.Menu())
	}
}

// nextPending finds the first non-terminal job after idx, wrapping around
func nextPending(jobs []models.Job, idx int) int {
	for i := idx + 1; i < len(jobs); i++ {
		if !jobs[i].Status.IsTerminal() {
			return i
		}
	}
	for i := 0; i <= idx && i < len(jobs); i++ {
		if !jobs[i].Status.IsTerminal() {
			return i
		}
	}
	return -1
}

// applyOrder reorders jobs by the optimizer's permutation. A result that is
// not a permutation leaves the input order alone.
func applyOrder(jobs []models.Job, result *models.OptimizeResult) []models.Job {
	if !result.IsPermutationOf(len(jobs)) {
		if result != nil && len(result.Order) > 0 {
			log.Printf("⚠️  Optimizer order is not a permutation of %d stops, keeping input order", len(jobs))
		}
		return jobs
	}
	ordered := make([]models.Job, len(jobs))
	for i, idx := range result.Order {
		ordered[i] = jobs[idx]
	}
	return ordered
}
