package api

import (
	"net/http"
	"time"

	"vendor-tracking/internal/shared/health"
	"vendor-tracking/internal/shared/jwt"
	"vendor-tracking/internal/shared/middleware"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/app"
	"vendor-tracking/internal/tracking/domain"
	"vendor-tracking/internal/tracking/hub"
)

// Tracker is the read and create side of app.Tracker the handlers use.
type Tracker interface {
	CreateAssignment(a domain.Assignment) (domain.Assignment, error)
	Snapshot(assignmentID string) (domain.Snapshot, error)
	Estimate(assignmentID string) (*float64, error)
	BookingSnapshots(bookingID string) []domain.Snapshot
	Snapshots() []domain.Snapshot
}

var _ Tracker = (*app.Tracker)(nil)

type Options struct {
	JWTSecret   string
	AuthTimeout time.Duration
}

type Handler struct {
	tracker     Tracker
	hub         *hub.Hub
	cache       domain.SnapshotCache
	logger      *util.Logger
	secret      []byte
	authTimeout time.Duration
}

// NewHandler builds the HTTP surface. cache may be nil.
func NewHandler(tracker Tracker, h *hub.Hub, cache domain.SnapshotCache, logger *util.Logger, opts Options) *Handler {
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = 5 * time.Second
	}
	return &Handler{
		tracker:     tracker,
		hub:         h,
		cache:       cache,
		logger:      logger,
		secret:      []byte(opts.JWTSecret),
		authTimeout: opts.AuthTimeout,
	}
}

func (h *Handler) RegisterRoutes(checks ...health.Check) http.Handler {
	mux := http.NewServeMux()

	viewers := h.AuthMiddleware(jwt.RoleUser, jwt.RoleAdmin, jwt.RoleVendor, jwt.RoleService)
	vendors := h.AuthMiddleware(jwt.RoleVendor)
	operators := h.AuthMiddleware(jwt.RoleVendor, jwt.RoleAdmin)
	services := h.AuthMiddleware(jwt.RoleService, jwt.RoleAdmin)
	admins := h.AuthMiddleware(jwt.RoleAdmin)

	mux.Handle("POST /assignments", services(http.HandlerFunc(h.CreateAssignmentHandler)))
	mux.Handle("GET /assignments/{assignment_id}", viewers(http.HandlerFunc(h.GetAssignmentHandler)))
	mux.Handle("GET /assignments/{assignment_id}/eta", viewers(http.HandlerFunc(h.GetETAHandler)))
	mux.Handle("POST /assignments/{assignment_id}/location", vendors(http.HandlerFunc(h.ReportLocationHandler)))
	mux.Handle("POST /assignments/{assignment_id}/status", operators(http.HandlerFunc(h.ChangeStatusHandler)))
	mux.Handle("GET /bookings/{booking_id}/snapshot", viewers(http.HandlerFunc(h.BookingSnapshotHandler)))
	mux.Handle("GET /admin/overview", admins(http.HandlerFunc(h.OverviewHandler)))
	mux.Handle("GET /admin/assignments", admins(http.HandlerFunc(h.ActiveAssignmentsHandler)))
	mux.HandleFunc("GET /health", health.Handler("tracking-service", checks...))
	mux.HandleFunc("GET /ws", h.WSHandler)

	return middleware.RequestID(middleware.Logging(h.logger)(mux))
}
