package controllers

import (
	"context"
	"net/http"

	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

// ReadinessCheck probes one dependency for the ready endpoint.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BundleHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady runs the dependency probes in order and fails on the first
// unhealthy one.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BundleHub-Env", cfg.App.Env)
		for _, probe := range checks {
			if probe.Check == nil {
				continue
			}
			if err := probe.Check(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, probe.Name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
