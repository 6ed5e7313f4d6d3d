package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"binbird-backend/internal/database"
	"binbird-backend/internal/middleware"
	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"
	"binbird-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// PlanRunRequest is the body of POST /api/runs/plan. Jobs stay loosely
// typed; when they are omitted the jobs for Day are loaded from the database.
type PlanRunRequest struct {
	Start        *models.Coordinates      `json:"start"`
	End          *models.Coordinates      `json:"end"`
	StartAddress *string                  `json:"start_address"`
	EndAddress   *string                  `json:"end_address"`
	Jobs         []map[string]interface{} `json:"jobs"`
	Day          string                   `json:"day"`
	Assignee     *string                  `json:"assignee"`
}

// PlanRun optimizes and stores a new run plan for the device
func PlanRun(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlanRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		raws := make([]models.RawJob, 0, len(req.Jobs))
		for _, job := range req.Jobs {
			raws = append(raws, models.RawJob(job))
		}
		if len(raws) == 0 && req.Day != "" {
			if env.DB == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "Job lookup is not configured")
				return
			}
			loaded, err := database.ListJobsForDay(env.DB, req.Day, req.Assignee, env.Day, env.now())
			if err != nil {
				log.Printf("❌ Error loading jobs for %s: %v", req.Day, err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to load jobs")
				return
			}
			raws = loaded
		}

		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}

		plan, polyline, err := runner.Plan(r.Context(), runstate.PlanInput{
			Start:        req.Start,
			End:          req.End,
			StartAddress: req.StartAddress,
			EndAddress:   req.EndAddress,
			Jobs:         raws,
		})
		if err != nil {
			respondRunError(w, err)
			return
		}

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"plan":     plan,
			"polyline": polyline,
			"menu":     runner.Menu(),
		})
	}
}

// GetPlan returns the device's current plan, or null
func GetPlan(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, identity, ok := env.runner(w, r)
		if !ok {
			return
		}
		repo := env.repository(identity, runstate.NopFlagCookie{})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"plan": repo.ReadPlannedRun(),
			"menu": runner.Menu(),
		})
	}
}

// DeletePlan discards a plan that has not been started
func DeletePlan(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		if err := runner.ClearPlan(); err != nil {
			respondRunError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"menu": runner.Menu()})
	}
}

// StartRun starts the planned run
func StartRun(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		progress, err := runner.Start(r.Context())
		if err != nil {
			respondRunError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, progress)
	}
}

// SetJobStatus moves job {idx} to the status in the body
func SetJobStatus(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := jobIndex(w, r)
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		status, known := runstate.ParseJobStatus(req.Status)
		if !known {
			utils.RespondError(w, http.StatusBadRequest, "Unknown status: "+req.Status)
			return
		}

		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		job := env.jobAt(r, idx)
		progress, err := runner.SetJobStatus(r.Context(), idx, status)
		if err != nil {
			respondRunError(w, err)
			return
		}
		if status.IsTerminal() {
			env.persistDone(job, status, nil)
		}
		utils.RespondJSON(w, http.StatusOK, progress)
	}
}

// CompleteJob marks job {idx} completed, optionally with a proof photo
func CompleteJob(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := jobIndex(w, r)
		if !ok {
			return
		}

		var req struct {
			PhotoPath *string `json:"photo_path"`
		}
		// The body is optional
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		job := env.jobAt(r, idx)
		progress, err := runner.CompleteJob(r.Context(), idx, req.PhotoPath)
		if err != nil {
			respondRunError(w, err)
			return
		}
		env.persistDone(job, models.JobStatusCompleted, req.PhotoPath)
		utils.RespondJSON(w, http.StatusOK, progress)
	}
}

// SkipJob marks job {idx} skipped
func SkipJob(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := jobIndex(w, r)
		if !ok {
			return
		}

		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		job := env.jobAt(r, idx)
		progress, err := runner.SkipJob(r.Context(), idx)
		if err != nil {
			respondRunError(w, err)
			return
		}
		env.persistDone(job, models.JobStatusSkipped, nil)
		utils.RespondJSON(w, http.StatusOK, progress)
	}
}

// EndRun ends the run early
func EndRun(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		progress, err := runner.End(r.Context(), models.RunEndManual)
		if err != nil {
			respondRunError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, progress)
	}
}

// GetMenu returns the menu flags for the device
func GetMenu(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, runner.Menu())
	}
}

// GetSession returns the raw run session record, or null
func GetSession(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, identity, ok := env.runner(w, r)
		if !ok {
			return
		}
		repo := env.repository(identity, runstate.NopFlagCookie{})
		session := repo.ReadRunSession()

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"session": session,
			"active":  runstate.IsRunSessionActive(session),
		})
	}
}

// GetSummary returns the run summary. A finished run's summary is only
// returned once.
func GetSummary(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runner, _, ok := env.runner(w, r)
		if !ok {
			return
		}
		stats := runner.Summary()
		if stats == nil {
			utils.RespondError(w, http.StatusNotFound, "No run to summarize")
			return
		}
		utils.RespondJSON(w, http.StatusOK, stats)
	}
}

// GetRunHistory lists the device's finished runs
func GetRunHistory(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.DB == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Run history is not configured")
			return
		}
		_, identity, ok := env.runner(w, r)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		history, err := database.ListRunHistory(env.DB, identity.DeviceID, limit)
		if err != nil {
			log.Printf("❌ Error fetching run history: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch run history")
			return
		}
		utils.RespondJSON(w, http.StatusOK, history)
	}
}

func jobIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		utils.RespondError(w, http.StatusBadRequest, "Invalid job index")
		return 0, false
	}
	return idx, true
}

// jobAt returns the planned job at idx before it is mutated
func (e *Env) jobAt(r *http.Request, idx int) *models.Job {
	if e.DB == nil {
		return nil
	}
	identity, ok := middleware.GetDeviceFromContext(r)
	if !ok {
		return nil
	}
	plan := e.repository(identity, runstate.NopFlagCookie{}).ReadPlannedRun()
	if plan == nil || idx >= len(plan.Jobs) {
		return nil
	}
	job := plan.Jobs[idx]
	return &job
}

// persistDone mirrors a terminal status into the jobs table
func (e *Env) persistDone(job *models.Job, status models.JobStatus, photoPath *string) {
	if e.DB == nil || job == nil {
		return
	}
	if err := database.MarkJobDone(e.DB, job.ID, status, e.Day.Key(e.now()), photoPath); err != nil {
		log.Printf("⚠️  Failed to persist %s for job %s: %v", status, job.ID, err)
	}
}
