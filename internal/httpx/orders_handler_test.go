package httpx_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"moto_backend/internal/httpx"
	"moto_backend/internal/orders"
	"moto_backend/internal/orders/ordertest"
	"moto_backend/internal/redisx"
)

func newTestServer(t *testing.T, rdb *redis.Client) (*httptest.Server, *ordertest.MemStore) {
	t.Helper()

	store := ordertest.NewMemStore()
	store.SeedProduct(orders.Product{ID: 1, Name: "Helm", Price: decimal.RequireFromString("150.00"), Quantity: 5})
	store.SeedAddress(orders.UserAddress{ID: 11, UserID: "u1", NameContact: "Budi", PhoneContact: "0812", Detail: "Jl. Sudirman 1"})
	store.SeedCart("u1", 1, 2)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := orders.NewService(log, store, "")

	r := httpx.NewRouter()
	h := &httpx.OrdersHandler{Service: svc, Store: store, Redis: rdb, Log: log}
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any, header map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func TestCreateOrderOK(t *testing.T) {
	srv, store := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", httpx.CreateOrderReq{
		UserID:    "u1",
		AddressID: 11,
		Details:   []orders.PlacementLine{{ProductID: 1, Quantity: 2}},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	var cr httpx.CreateOrderResp
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatal(err)
	}
	if !cr.Success || cr.OrderID == 0 {
		t.Fatalf("resp = %+v", cr)
	}
	if len(store.Cart("u1")) != 0 {
		t.Fatal("cart should be emptied")
	}
	if len(store.Outbox()) != 1 {
		t.Fatalf("outbox rows = %d, want 1", len(store.Outbox()))
	}
}

func TestCreateOrderStaleCart(t *testing.T) {
	srv, store := newTestServer(t, nil)

	// qty di request beda dengan isi cart
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", httpx.CreateOrderReq{
		UserID:    "u1",
		AddressID: 11,
		Details:   []orders.PlacementLine{{ProductID: 1, Quantity: 3}},
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if store.OrderCount() != 0 {
		t.Fatal("no order should be created")
	}
	if got := store.Cart("u1"); got[1] != 2 {
		t.Fatalf("cart = %v, should be untouched", got)
	}
}

func TestCreateOrderCallerMismatch(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/orders", httpx.CreateOrderReq{
		UserID:    "u1",
		AddressID: 11,
		Details:   []orders.PlacementLine{{ProductID: 1, Quantity: 2}},
	}, map[string]string{"X-User-Id": "u2"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRefuseRequiresIdentity(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/1/refuse", httpx.UpdateStatusReq{
		ID: 1, Status: orders.StatusRefusedCustomer, OldStatus: orders.StatusPending,
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRefuseByOwner(t *testing.T) {
	srv, store := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders/1/refuse", httpx.UpdateStatusReq{
		ID: 1, Status: orders.StatusRefusedCustomer, OldStatus: orders.StatusPending,
	}, map[string]string{"X-User-Id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}

	// refuse masuk kelas cancel: ada batch kompensasi di outbox
	if rows := store.Outbox(); len(rows) != 2 {
		t.Fatalf("outbox rows = %d, want 2", len(rows))
	}
}

func TestUpdateStatusIDMismatch(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/1", httpx.UpdateStatusReq{
		ID: 2, Status: orders.StatusConfirmed, OldStatus: orders.StatusPending,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateStatusConflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	// old_status tidak cocok dengan yang tersimpan
	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/1", httpx.UpdateStatusReq{
		ID: 1, Status: orders.StatusShipping, OldStatus: orders.StatusConfirmed,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetOrder(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/1", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var v httpx.OrderView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatal(err)
	}
	if v.ID != 1 || v.UserID != "u1" || v.Total != "300" {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Details) != 1 || v.Details[0].ProductID != 1 || v.Details[0].Quantity != 2 {
		t.Fatalf("details = %+v", v.Details)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/orders/99", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetOrderStatusWithoutRedis(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders/1/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var v map[string]int
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatal(err)
	}
	if v["status"] != orders.StatusPending {
		t.Fatalf("status = %d, want %d", v["status"], orders.StatusPending)
	}
}

func TestMyOrders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	placeTestOrder(t, srv)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/my/orders", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status tanpa identity = %d, want 401", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/my/orders", nil, map[string]string{"X-User-Id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var list []httpx.OrderView
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].UserID != "u1" {
		t.Fatalf("list = %+v", list)
	}
}

// Replay create yang idempotent (fast path redis sudah expire) balikin
// order lama; cache status harus isi status tersimpan, bukan pending.
func TestCreateOrderReplayCachesStoredStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	srv, store := newTestServer(t, rdb)

	create := httpx.CreateOrderReq{
		UserID:     "u1",
		AddressID:  11,
		ExternalID: "ext-1",
		Details:    []orders.PlacementLine{{ProductID: 1, Quantity: 2}},
	}
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", create, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: status = %d, body = %s", resp.StatusCode, body)
	}

	// fast path lewat: key idempotency sudah expire
	mr.Del(fmt.Sprintf(redisx.KeyIdemOrderCreate, "ext-1"))

	// operator majuin status 0 -> 1
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/orders/1", httpx.UpdateStatusReq{
		ID: 1, Status: orders.StatusConfirmed, OldStatus: orders.StatusPending,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", resp.StatusCode, body)
	}

	// replay create: order lama, tanpa side effect baru
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/orders", create, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replay: status = %d, body = %s", resp.StatusCode, body)
	}
	var cr httpx.CreateOrderResp
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatal(err)
	}
	if cr.OrderID != 1 || store.OrderCount() != 1 {
		t.Fatalf("replay resp = %+v, orders = %d", cr, store.OrderCount())
	}

	cached, err := mr.Get(fmt.Sprintf(redisx.KeyOrderStatus, int64(1)))
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"status":1}`; cached != want {
		t.Fatalf("cached status = %s, want %s", cached, want)
	}
}

func placeTestOrder(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", httpx.CreateOrderReq{
		UserID:    "u1",
		AddressID: 11,
		Details:   []orders.PlacementLine{{ProductID: 1, Quantity: 2}},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed order: status = %d, body = %s", resp.StatusCode, body)
	}
}
