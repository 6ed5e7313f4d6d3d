package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"binbird-backend/internal/database"
	"binbird-backend/internal/middleware"
	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"
	"binbird-backend/pkg/utils"
)

// GetJobs returns the normalized jobs of a weekday. day defaults to the
// weekday of the current operational day.
func GetJobs(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.DB == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Job lookup is not configured")
			return
		}

		day := strings.TrimSpace(r.URL.Query().Get("day"))
		if day == "" {
			day = env.Day.Weekday(env.now()).String()
		}
		var assignee *string
		if a := strings.TrimSpace(r.URL.Query().Get("assignee")); a != "" {
			assignee = &a
		}

		log.Printf("📥 REQUEST: GET /api/jobs (day=%s)", day)

		raws, err := database.ListJobsForDay(env.DB, day, assignee, env.Day, env.now())
		if err != nil {
			log.Printf("❌ Error fetching jobs: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch jobs")
			return
		}

		jobs := make([]models.Job, 0, len(raws))
		warnings := map[string][]string{}
		for _, raw := range raws {
			job, jobWarnings := runstate.NormalizeJobWithWarnings(raw)
			if len(jobWarnings) > 0 {
				warnings[job.ID] = jobWarnings
			}
			jobs = append(jobs, job)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"day":      day,
			"jobs":     jobs,
			"warnings": warnings,
		})
	}
}

// RegisterFCMToken registers a Firebase Cloud Messaging token
func RegisterFCMToken(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.DB == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
			return
		}

		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing token")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" && req.DeviceType != "web" {
			utils.RespondError(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'web')")
			return
		}

		role := "staff"
		if userClaims.Role == "admin" {
			role = "admin"
		}

		tokens := database.FCMTokens{DB: env.DB}
		if err := tokens.Register(r.Context(), userClaims.UserID, role, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.Printf("📱 FCM token registered: %s (%s)", userClaims.Email, req.DeviceType)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
