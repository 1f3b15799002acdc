package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"vendor-tracking/internal/shared/jwt"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/domain"
	"vendor-tracking/internal/tracking/hub"
)

type ctxKey string

const identityKey ctxKey = "identity"

func withIdentity(ctx context.Context, ident hub.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom returns the caller stored by AuthMiddleware. The zero
// Identity means token checks are disabled.
func IdentityFrom(ctx context.Context) hub.Identity {
	ident, _ := ctx.Value(identityKey).(hub.Identity)
	return ident
}

func (h *Handler) authEnabled() bool {
	return len(h.secret) > 0
}

func (h *Handler) identify(header string, roles ...string) (hub.Identity, error) {
	claims, err := jwt.ParseBearer(h.secret, header)
	if err != nil {
		return hub.Identity{}, err
	}
	if len(roles) > 0 {
		if err := jwt.RequireRole(claims, roles...); err != nil {
			return hub.Identity{}, err
		}
	}
	return hub.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// AuthMiddleware admits requests whose bearer token carries one of roles.
// It is a pass-through when no secret is configured.
func (h *Handler) AuthMiddleware(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.authEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			ident, err := h.identify(r.Header.Get("Authorization"), roles...)
			switch {
			case errors.Is(err, jwt.ErrForbiddenRole):
				h.logger.Warn("AuthMiddleware", err.Error())
				util.ErrResponseInJson(w, domain.ErrForbidden)
				return
			case err != nil:
				h.logger.Warn("AuthMiddleware", err.Error())
				util.WriteJSONError(w, "Unauthorized", "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
		})
	}
}

// authorizeVendor checks that a vendor caller owns the assignment. Other
// roles and disabled auth pass.
func (h *Handler) authorizeVendor(ident hub.Identity, assignmentID string) error {
	if ident.Role != jwt.RoleVendor {
		return nil
	}
	snap, err := h.tracker.Snapshot(assignmentID)
	if err != nil {
		return err
	}
	if snap.Assignment.VendorID != ident.Subject {
		return domain.ErrForbidden
	}
	return nil
}

// reportingVendor resolves the vendor a location report is attributed to.
// With auth on the token subject wins and a differing claimed vendorId is
// refused; with auth off the claimed one is kept.
func (h *Handler) reportingVendor(ident hub.Identity, claimed string) (string, error) {
	if !h.authEnabled() {
		return claimed, nil
	}
	if claimed != "" && claimed != ident.Subject {
		return "", fmt.Errorf("vendorId %s does not match the caller: %w", claimed, domain.ErrForbidden)
	}
	return ident.Subject, nil
}
