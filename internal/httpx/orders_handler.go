package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"moto_backend/internal/orders"
	"moto_backend/internal/redisx"
)

type OrdersHandler struct {
	Service *orders.Service
	Store   orders.Store
	Redis   *redis.Client
	Log     *slog.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Put("/orders/{id}", h.updateStatus)
	r.Put("/orders/{id}/refuse", h.refuseOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Get("/my/orders", h.myOrders)
	r.Get("/products", h.listProducts)
}

type CreateOrderReq struct {
	UserID     string                 `json:"user_id"`
	AddressID  int64                  `json:"address_id"`
	ExternalID string                 `json:"external_id,omitempty"`
	Details    []orders.PlacementLine `json:"details"`
}

type CreateOrderResp struct {
	Success bool  `json:"success"`
	OrderID int64 `json:"order_id"`
}

type UpdateStatusReq struct {
	ID        int64 `json:"id"`
	Status    int   `json:"status"`
	OldStatus int   `json:"old_status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case orders.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		// PersistenceFailure: transaksi sudah rollback, tanpa partial state.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if caller := CallerID(r); caller != "" && caller != req.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user mismatch"})
		return
	}
	// Client boleh kirim external_id sendiri untuk retry yang idempotent;
	// kalau kosong, generate supaya setiap order tetap punya reference unik.
	if req.ExternalID == "" {
		req.ExternalID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast path idempotency via redis; DB tetap sumber kebenaran.
	if req.ExternalID != "" && h.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		if s, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && s != "" {
			id, _ := strconv.ParseInt(s, 10, 64)
			writeJSON(w, http.StatusOK, CreateOrderResp{Success: true, OrderID: id})
			return
		}
	}

	orderID, err := h.Service.PlaceOrder(ctx, orders.PlaceOrderInput{
		UserID:     req.UserID,
		AddressID:  req.AddressID,
		ExternalID: req.ExternalID,
		Lines:      req.Details,
	})
	if err != nil {
		h.Log.Warn("create order rejected", "user_id", req.UserID, "err", err)
		writeError(w, err)
		return
	}

	if req.ExternalID != "" && h.Redis != nil {
		idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		_ = h.Redis.Set(ctx, idemKey, strconv.FormatInt(orderID, 10), redisx.TTLIdempotency).Err()
	}
	// Replay idempotent bisa balikin order lama yang statusnya sudah
	// maju; cache status tersimpan, jangan asumsi masih pending.
	if status, err := h.Store.OrderStatus(ctx, orderID); err == nil {
		h.cacheStatus(ctx, orderID, status)
	}

	writeJSON(w, http.StatusOK, CreateOrderResp{Success: true, OrderID: orderID})
}

// updateStatus: transisi operator, tanpa ownership check.
func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeStatusReq(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.UpdateStatus(ctx, id, req.Status, req.OldStatus); err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, id, req.Status)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// refuseOrder: aksi customer, wajib pemilik order.
func (h *OrdersHandler) refuseOrder(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.decodeStatusReq(w, r)
	if !ok {
		return
	}
	caller := CallerID(r)
	if caller == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.Refuse(ctx, id, caller, req.Status, req.OldStatus); err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, id, req.Status)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *OrdersHandler) decodeStatusReq(w http.ResponseWriter, r *http.Request) (int64, UpdateStatusReq, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, UpdateStatusReq{}, false
	}
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return 0, UpdateStatusReq{}, false
	}
	if req.ID != id {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id mismatch"})
		return 0, UpdateStatusReq{}, false
	}
	return id, req, true
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(o))
}

// getOrderStatus: cache-aside eksplisit di handler, bukan interception.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	status, err := h.Store.OrderStatus(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]int{"status": status}
	if h.Redis != nil {
		b, _ := json.Marshal(body)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ListOrders(ctx, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(list))
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	caller := CallerID(r)
	if caller == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ListOrdersByUser(ctx, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(list))
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, status int) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b, _ := json.Marshal(map[string]int{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

type OrderView struct {
	ID        int64             `json:"id"`
	UserID    string            `json:"user_id"`
	AddressID int64             `json:"address_id"`
	Total     string            `json:"total"`
	Status    int               `json:"status"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Details   []OrderDetailView `json:"details,omitempty"`
}

type OrderDetailView struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

func orderView(o orders.Order) OrderView {
	v := OrderView{
		ID:        o.ID,
		UserID:    o.UserID,
		AddressID: o.AddressID,
		Total:     o.Total.String(),
		Status:    o.Status,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, d := range o.Details {
		v.Details = append(v.Details, OrderDetailView{
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Price:     d.Price.String(),
		})
	}
	return v
}

func orderViews(list []orders.Order) []OrderView {
	out := make([]OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, orderView(o))
	}
	return out
}
