package api

import (
	"net/http"

	"github.com/safar/storefront/internal/broadcast"
	"github.com/safar/storefront/internal/store"
)

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req store.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClerkID = principal(r).UserID

	proposal, msg, err := s.store.CreateProposal(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err, "Failed to create proposal")
		return
	}

	s.events.Dispatch(r.Context(), broadcast.MessageSent(msg))

	respondJSON(w, r, http.StatusCreated, map[string]any{
		"success":  true,
		"proposal": proposal,
		"message":  msg,
	})
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.store.ListProposalsForCustomer(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to list proposals")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"items": proposals})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req store.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SenderID = principal(r).UserID

	msg, err := s.store.SendMessage(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err, "Failed to send message")
		return
	}

	s.events.Dispatch(r.Context(), broadcast.MessageSent(msg))
	respondJSON(w, r, http.StatusCreated, msg)
}
