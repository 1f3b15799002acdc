package api

import (
	"net/http"
	"strconv"
	"time"

	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
)

type OverviewMetrics struct {
	Connections int                   `json:"connections"`
	Rooms       int                   `json:"rooms"`
	Assignments int                   `json:"assignments"`
	ByStatus    map[domain.Status]int `json:"byStatus"`
}

type OverviewResponse struct {
	Timestamp string          `json:"timestamp"`
	Metrics   OverviewMetrics `json:"metrics"`
}

type AssignmentsResponse struct {
	Assignments []domain.Snapshot `json:"assignments"`
	TotalCount  int               `json:"totalCount"`
	Page        int               `json:"page"`
	PageSize    int               `json:"pageSize"`
}

func (h *Handler) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	snaps := h.tracker.Snapshots()
	byStatus := make(map[domain.Status]int)
	for _, s := range snaps {
		byStatus[s.Assignment.Status]++
	}

	util.ResponseInJson(w, http.StatusOK, OverviewResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Metrics: OverviewMetrics{
			Connections: h.hub.Connections(),
			Rooms:       h.hub.Rooms(),
			Assignments: len(snaps),
			ByStatus:    byStatus,
		},
	})
}

// ActiveAssignmentsHandler lists assignments that are not COMPLETED, or
// only those in ?status= when given.
func (h *Handler) ActiveAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	pageSize := 20

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	var want domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := domain.ParseStatus(raw)
		if err != nil {
			util.ErrResponseInJson(w, err)
			return
		}
		want = st
	}

	var active []domain.Snapshot
	for _, s := range h.tracker.Snapshots() {
		st := s.Assignment.Status
		if (want == "" && st != domain.StatusCompleted) || st == want {
			active = append(active, s)
		}
	}

	resp := AssignmentsResponse{
		Assignments: []domain.Snapshot{},
		TotalCount:  len(active),
		Page:        page,
		PageSize:    pageSize,
	}
	if start := (page - 1) * pageSize; start < len(active) {
		end := start + pageSize
		if end > len(active) {
			end = len(active)
		}
		resp.Assignments = active[start:end]
	}

	util.ResponseInJson(w, http.StatusOK, resp)
}
