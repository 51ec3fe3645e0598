package api

import (
	"net/http"

	"github.com/safar/storefront/internal/store"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to load profile")
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 1<<20)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := s.store.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		respondFailure(w, r, err, "Failed to list products")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err, "Failed to get product")
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req store.AddCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = principal(r).UserID

	item, err := s.store.AddCartItem(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err, "Failed to add cart item")
		return
	}
	respondJSON(w, r, http.StatusCreated, item)
}

func (s *Server) handleListCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListCartItems(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to list cart")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"items": items})
}
