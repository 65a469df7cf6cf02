package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

type RouterConfig struct {
	Availability *schedule.Availability
	Planner      *schedule.Planner
	Booking      *schedule.BookingEngine
	Lifecycle    *schedule.Lifecycle
	Stats        *schedule.Stats
	Store        schedule.Store
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       *logging.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and observability
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Weekly availability
	r.Post("/physicians/{physicianID}/windows", addWindowHandler(cfg.Availability))
	r.Get("/physicians/{physicianID}/windows", listWindowsHandler(cfg.Availability))
	r.Post("/physicians/{physicianID}/windows/deactivate", deactivatePhysicianHandler(cfg.Availability))
	r.Patch("/windows/{id}", updateWindowHandler(cfg.Availability))
	r.Delete("/windows/{id}", deactivateWindowHandler(cfg.Availability))

	// Slots
	r.Get("/physicians/{physicianID}/slots", availableSlotsHandler(cfg.Planner))

	// Appointments
	r.Post("/appointments", bookHandler(cfg.Booking))
	r.Get("/appointments", dayAgendaHandler(cfg.Store))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Store))
	r.Get("/appointments/code/{code}", getAppointmentByCodeHandler(cfg.Store))
	r.Post("/appointments/{id}/confirm", transitionHandler(cfg.Lifecycle.Confirm))
	r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Lifecycle.Cancel))
	r.Post("/appointments/{id}/complete", transitionHandler(cfg.Lifecycle.Complete))
	r.Post("/appointments/{id}/no-show", transitionHandler(cfg.Lifecycle.MarkNoShow))

	// Listings and reporting
	r.Get("/patients/{patientID}/appointments", listByPatientHandler(cfg.Store))
	r.Get("/physicians/{physicianID}/appointments", listByPhysicianHandler(cfg.Store))
	r.Get("/stats/appointments", statsHandler(cfg.Stats))

	return r
}
