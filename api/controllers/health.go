package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hellofresh/health-go/v5"

	"github.com/kledje/storefront-backend/api/responses"
	"github.com/kledje/storefront-backend/pkg/config"
)

const serviceName = "storefront-backend"

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// NewReadinessCheck registers the database and redis checks.
func NewReadinessCheck(version string, dbP, redisP Pinger) (*health.Health, error) {
	checks := []health.Config{}
	if dbP != nil {
		checks = append(checks, health.Config{
			Name:    "database",
			Timeout: 3 * time.Second,
			Check:   dbP.Ping,
		})
	}
	if redisP != nil {
		checks = append(checks, health.Config{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Check:   redisP.Ping,
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    serviceName,
			Version: version,
		}),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("create health checks: %w", err)
	}
	return h, nil
}

// HealthReady reports 200 when every dependency answers and 503 otherwise.
func HealthReady(cfg *config.Config, h *health.Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		h.HandlerFunc(w, r)
	}
}
