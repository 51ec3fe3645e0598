package api

import (
	"net/http"


	"github.com/safar/storefront/internal/broadcast"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

type placeOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*store.PlaceOrderResult
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req store.PlaceOrderRequest
	if !decodeLenientJSON(w, r, &req) {
		return
	}
	req.UserID = principal(r).UserID

	result, err := s.store.PlaceOrder(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err, "Failed to place order")
		return
	}

	s.events.Dispatch(r.Context(), broadcast.OrderPlaced(result.Order))

	respondJSON(w, r, http.StatusCreated, placeOrderResponse{
		Success:          true,
		Message:          "Order placed successfully",
		PlaceOrderResult: result,
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 100)
	page, err := s.store.ListOrdersCursor(r.Context(), principal(r).UserID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondFailure(w, r, err, "Failed to list orders")
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := s.store.GetOrder(r.Context(), principal(r).UserID, id)
	if err != nil {
		respondFailure(w, r, err, "Failed to get order")
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	s.updateStatus(w, r, func(id int64, status string) (*models.Order, error) {
		return s.store.UpdateOrderStatus(r.Context(), principal(r).UserID, id, status)
	})
}

func (s *Server) handleAdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	s.updateStatus(w, r, func(id int64, status string) (*models.Order, error) {
		return s.store.AdminUpdateOrderStatus(r.Context(), id, status)
	})
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request, update func(id int64, status string) (*models.Order, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := update(id, req.Status)
	if err != nil {
		respondFailure(w, r, err, "Failed to update order status")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order status updated",
		"order":   order,
	})
}

func (s *Server) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 1<<20)
	pageSize := queryInt(r, "page_size", 20, 100)

	result, err := s.store.AdminListOrders(r.Context(), page, pageSize)
	if err != nil {
		respondFailure(w, r, err, "Failed to list orders")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleAdminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := s.store.AdminGetOrder(r.Context(), id)
	if err != nil {
		respondFailure(w, r, err, "Failed to get order")
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.ClearCart(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to clear cart")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Cart cleared",
		"deleted_count": deleted,
	})
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountCartItems(r.Context(), principal(r).UserID)
	if err != nil {
		respondFailure(w, r, err, "Failed to count cart items")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "count": count})
}
