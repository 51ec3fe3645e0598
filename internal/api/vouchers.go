package api

import (
	"net/http"

	"github.com/safar/storefront/internal/broadcast"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/validation"
)

type validateVoucherRequest struct {
	VoucherCode string `json:"voucher_code"`
}

type sendVoucherRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

func (s *Server) handleListVouchers(w http.ResponseWriter, r *http.Request) {
	grants, err := s.store.ListActiveGrants(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to list vouchers")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"items": grants})
}

// handleValidateVoucher checks a code before checkout. It never redeems.
func (s *Server) handleValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VoucherCode == "" {
		respondFailure(w, r, validation.Field("voucher_code", "is required"), "")
		return
	}

	grant, err := s.store.ValidateGrantCode(r.Context(), principal(r).UserID, req.VoucherCode)
	if err != nil {
		respondFailure(w, r, err, "Failed to validate voucher")
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"valid":   true,
		"message": "Voucher is valid",
		"voucher": grant,
		"percent": grant.Voucher.Percent,
	})
}

func (s *Server) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req store.CreateVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	voucher, err := s.store.CreateVoucher(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err, "Failed to create voucher")
		return
	}
	respondJSON(w, r, http.StatusCreated, voucher)
}

func (s *Server) handleToggleVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	voucher, err := s.store.ToggleVoucherStatus(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err, "Failed to toggle voucher")
		return
	}
	respondJSON(w, r, http.StatusOK, voucher)
}

func (s *Server) handleSendVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req sendVoucherRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.UserIDs) == 0 {
		respondFailure(w, r, validation.Field("user_ids", "must not be empty"), "")
		return
	}

	grants, err := s.store.IssueGrants(r.Context(), id, req.UserIDs)
	if err != nil {
		respondFailure(w, r, err, "Failed to send voucher")
		return
	}

	events := make([]broadcast.Event, 0, len(grants))
	for i := range grants {
		events = append(events, broadcast.VoucherReceived(&grants[i]))
	}
	s.events.Dispatch(r.Context(), events...)

	respondJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Voucher sent",
		"grants":  grants,
	})
}
