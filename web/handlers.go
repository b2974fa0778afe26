package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cdr.dev/slog"
	"golang.org/x/xerrors"

	"activitytracker/entity"
	"activitytracker/query"
	"activitytracker/report"
	"activitytracker/retention"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check", slog.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", "DatabaseError")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dateParam returns the query parameter as a YYYY-MM-DD date, or def when
// it is absent.
func dateParam(r *http.Request, name, def string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	if _, err := time.Parse(entity.DateLayout, v); err != nil {
		return "", xerrors.Errorf("%s must be YYYY-MM-DD", name)
	}
	return v, nil
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := report.Today(s.clock.Now())
	from, err := dateParam(r, "start_date", today.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BadRequest")
		return
	}
	to, err := dateParam(r, "end_date", today.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BadRequest")
		return
	}

	records, err := s.store.ActivitiesBetween(ctx, from, to)
	if err != nil {
		s.logger.Error(ctx, "fetch activities", slog.F("from", from), slog.F("to", to), slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch activities", "DatabaseError")
		return
	}
	sessions, err := report.MergeActivities(records)
	if err != nil {
		s.logger.Warn(ctx, "merge activities", slog.Error(err))
	}
	usage, err := report.UsageSummary(sessions)
	if err != nil {
		s.logger.Warn(ctx, "summarize usage", slog.Error(err))
	}
	s.metrics.merged.WithLabelValues("activities").Observe(float64(len(records) - len(sessions)))

	writeJSON(w, http.StatusOK, map[string]any{
		"total_records": len(sessions),
		"activities":    sessions,
		"usagetime":     usage,
		"date_range":    report.DateRange{From: from, To: to},
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng := report.DaysBack(s.clock.Now(), report.DefaultSummaryDays)
	records, err := s.store.ActivitiesBetween(ctx, rng.From, rng.To)
	if err != nil {
		s.logger.Error(ctx, "fetch usage", slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error", "DatabaseError")
		return
	}
	stats := report.UsageStats(records)
	writeJSON(w, http.StatusOK, map[string]any{
		"total_records": len(stats),
		"stats":         stats,
		"date_range":    rng,
	})
}

func (s *Server) handleAFK(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	days := report.DefaultAFKDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer", "BadRequest")
			return
		}
		days = n
	}
	rng := report.DaysBack(s.clock.Now(), days)

	records, err := s.store.AFKRecords(ctx, query.AFKFilter{
		Since:    rng.From,
		Username: r.URL.Query().Get("username"),
	})
	if err != nil {
		s.logger.Error(ctx, "fetch afk records", slog.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Database error",
			Type:    "DatabaseError",
			Details: "Error processing AFK statistics",
		})
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "No data found",
			Details: "No AFK statistics available",
		})
		return
	}
	merged, err := report.MergeAFK(records)
	if err != nil {
		s.logger.Warn(ctx, "merge afk records", slog.Error(err))
	}
	s.metrics.merged.WithLabelValues("afk").Observe(float64(len(records) - len(merged)))

	writeJSON(w, http.StatusOK, map[string]any{
		"total_records": len(merged),
		"afk_stats":     merged,
		"date_range":    rng,
	})
}

func (s *Server) handleAFKSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng := report.DaysBack(s.clock.Now(), report.DefaultSummaryDays)
	records, err := s.store.AFKRecords(ctx, query.AFKFilter{
		Since:             rng.From,
		Username:          r.URL.Query().Get("username"),
		ExcludeHeartbeats: true,
	})
	if err != nil {
		s.logger.Error(ctx, "fetch afk summary", slog.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Database error",
			Type:    "DatabaseError",
			Details: "Error generating AFK summary",
		})
		return
	}
	summary, err := report.AFKSummary(records)
	if err != nil {
		s.logger.Warn(ctx, "summarize afk", slog.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_records": len(summary),
		"summary":       summary,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger
	if claims, ok := ctx.Value(sessionKey{}).(*sessionClaims); ok {
		logger = logger.With(slog.F("requested_by", claims.Username))
	}

	res, err := retention.Sweep(ctx, s.store, s.clock.Now())
	if err != nil {
		logger.Error(ctx, "cleanup", slog.F("cutoff", res.Cutoff), slog.Error(err))
		writeError(w, http.StatusInternalServerError, "Cleanup failed", "DatabaseError")
		return
	}
	s.metrics.swept.Add(float64(res.Total()))
	logger.Info(ctx, "cleanup completed",
		slog.F("cutoff", res.Cutoff),
		slog.F("activities", res.Activities),
		slog.F("idle_times", res.IdleTimes),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Cleanup completed. Deleted %d records", res.Total()),
		"deleted": res.Total(),
		"cutoff":  res.Cutoff,
	})
}
