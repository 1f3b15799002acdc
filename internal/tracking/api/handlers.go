package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"vendor-tracking/internal/shared/apperrors"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
)

func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v: %w", err, domain.ErrInvalidPayload)
	}
	return nil
}

func rejection(err error) Rejection {
	e := apperrors.FromError(err)
	return Rejection{Accepted: false, Reason: e.Message, Code: e.Code}
}

func (h *Handler) CreateAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	instance := "CreateAssignmentHandler"

	var input CreateAssignmentRequest
	if err := decodeBody(r, &input); err != nil {
		h.logger.Warn(instance, err.Error())
		util.ErrResponseInJson(w, err)
		return
	}

	a, err := h.tracker.CreateAssignment(domain.Assignment{
		ID:        input.AssignmentID,
		BookingID: input.BookingID,
		VendorID:  input.VendorID,
		Venue:     input.VenueLocation,
	})
	if err != nil {
		h.logger.Warn(instance, err.Error())
		util.ErrResponseInJson(w, err)
		return
	}

	h.logger.OK(instance, "assignment created: "+a.ID)
	util.ResponseInJson(w, http.StatusCreated, a)
}

// GetAssignmentHandler answers from local state and falls back to the shared
// cache for assignments tracked by another instance.
func (h *Handler) GetAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("assignment_id")
	snap, err := h.tracker.Snapshot(id)
	if errors.Is(err, domain.ErrAssignmentNotFound) && h.cache != nil {
		cached, cerr := h.cache.Get(r.Context(), id)
		switch {
		case cerr == nil:
			util.ResponseInJson(w, http.StatusOK, cached)
			return
		case !errors.Is(cerr, domain.ErrAssignmentNotFound):
			h.logger.Error("GetAssignmentHandler", "snapshot cache read failed", cerr)
		}
	}
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, snap)
}

func (h *Handler) GetETAHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("assignment_id")
	eta, err := h.tracker.Estimate(id)
	if err != nil {
		util.ErrResponseInJson(w, err)
		return
	}
	util.ResponseInJson(w, http.StatusOK, ETAResponse{AssignmentID: id, ETASeconds: eta})
}

// ReportLocationHandler is the request/response fallback of location_report.
// Rejections answer 200 with accepted=false, like the realtime ack.
func (h *Handler) ReportLocationHandler(w http.ResponseWriter, r *http.Request) {
	instance := "ReportLocationHandler"
	ident := IdentityFrom(r.Context())

	var report LocationReport
	if err := decodeBody(r, &report); err != nil {
		h.logger.Info(instance, err.Error())
		util.ResponseInJson(w, http.StatusOK, rejection(err))
		return
	}
	report.AssignmentID = r.PathValue("assignment_id")

	sample, err := report.Sample()
	if err == nil {
		sample.VendorID, err = h.reportingVendor(ident, sample.VendorID)
	}
	if err != nil {
		util.ResponseInJson(w, http.StatusOK, rejection(err))
		return
	}

	res, err := h.hub.OnLocationReport(nil, "", sample)
	switch {
	case err == nil:
		util.ResponseInJson(w, http.StatusOK, res)
	case domain.IsRejection(err):
		util.ResponseInJson(w, http.StatusOK, rejection(err))
	default:
		util.ErrResponseInJson(w, err)
	}
}

// ChangeStatusHandler is the request/response fallback of status_change.
func (h *Handler) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	instance := "ChangeStatusHandler"
	id := r.PathValue("assignment_id")

	var input StatusRequest
	if err := decodeBody(r, &input); err != nil {
		h.logger.Info(instance, err.Error())
		util.ResponseInJson(w, http.StatusOK, rejection(err))
		return
	}

	to, err := domain.ParseStatus(input.Status)
	if err == nil {
		err = h.authorizeVendor(IdentityFrom(r.Context()), id)
	}
	if err != nil {
		util.ResponseInJson(w, http.StatusOK, rejection(err))
		return
	}

	res, err := h.hub.OnStatusChangeRequest(nil, "", id, to)
	switch {
	case err == nil:
		util.ResponseInJson(w, http.StatusOK, res)
	case domain.IsRejection(err):
		rej := rejection(err)
		rej.CurrentStatus = res.Current
		util.ResponseInJson(w, http.StatusOK, rej)
	default:
		util.ErrResponseInJson(w, err)
	}
}

// BookingSnapshotHandler serves polling viewers from local state, and from
// the shared cache when this instance does not track the booking.
func (h *Handler) BookingSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	instance := "BookingSnapshotHandler"
	bookingID := r.PathValue("booking_id")

	snaps := h.tracker.BookingSnapshots(bookingID)
	if len(snaps) == 0 && h.cache != nil {
		cached, err := h.cache.ListByBooking(r.Context(), bookingID)
		if err != nil {
			h.logger.Error(instance, "snapshot cache read failed", err)
		}
		snaps = cached
	}
	if len(snaps) == 0 {
		util.ErrResponseInJson(w, fmt.Errorf("booking %s: %w", bookingID, domain.ErrAssignmentNotFound))
		return
	}

	util.ResponseInJson(w, http.StatusOK, BookingSnapshotResponse{BookingID: bookingID, Snapshots: snaps})
}
