package services

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"visadesk/internal/database"
	"visadesk/internal/logger"
)

// HealthResult reports service and database status
type HealthResult struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// health answers 503 when the database cannot be reached
func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := HealthResult{
		Status:   "healthy",
		Service:  s.cfg.App.Name,
		Version:  s.cfg.App.Version,
		Database: "ok",
	}
	status := http.StatusOK
	if err := database.HealthCheck(ctx, s.db); err != nil {
		logger.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		res.Status = "unhealthy"
		res.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	s.respond(w, r, status, res)
	return nil
}
