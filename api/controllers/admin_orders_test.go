package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalorders "github.com/shopdesk/shopdesk-backend/internal/orders"
	"github.com/shopdesk/shopdesk-backend/pkg/db/models"
	"github.com/shopdesk/shopdesk-backend/pkg/enums"
	pkgerrors "github.com/shopdesk/shopdesk-backend/pkg/errors"
	"github.com/shopdesk/shopdesk-backend/pkg/pagination"
)

type stubOrdersService struct {
	getFn        func(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDetail, error)
	listFn       func(ctx context.Context, params pagination.Params, filters internalorders.OrderFilters) (*internalorders.OrderList, error)
	couriersFn   func(ctx context.Context, activeOnly bool) ([]models.Courier, error)
	assignFn     func(ctx context.Context, input internalorders.AssignCourierInput) error
	removeFn     func(ctx context.Context, orderID, itemID uuid.UUID) error
	restoreFn    func(ctx context.Context, orderID, itemID uuid.UUID) error
	overrideFn   func(ctx context.Context, input internalorders.OverrideTotalInput) error
	setBalanceFn func(ctx context.Context, input internalorders.ManualBalanceInput) error
}

func (s stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDetail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return &internalorders.OrderDetail{}, nil
}

func (s stubOrdersService) ListOrders(ctx context.Context, params pagination.Params, filters internalorders.OrderFilters) (*internalorders.OrderList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

func (s stubOrdersService) ListCouriers(ctx context.Context, activeOnly bool) ([]models.Courier, error) {
	if s.couriersFn != nil {
		return s.couriersFn(ctx, activeOnly)
	}
	return nil, nil
}

func (s stubOrdersService) AssignCourier(ctx context.Context, input internalorders.AssignCourierInput) error {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return nil
}

func (s stubOrdersService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, orderID, itemID)
	}
	return nil
}

func (s stubOrdersService) RestoreItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	if s.restoreFn != nil {
		return s.restoreFn(ctx, orderID, itemID)
	}
	return nil
}

func (s stubOrdersService) OverrideTotal(ctx context.Context, input internalorders.OverrideTotalInput) error {
	if s.overrideFn != nil {
		return s.overrideFn(ctx, input)
	}
	return nil
}

func (s stubOrdersService) SetManualBalance(ctx context.Context, input internalorders.ManualBalanceInput) error {
	if s.setBalanceFn != nil {
		return s.setBalanceFn(ctx, input)
	}
	return nil
}

func withOrderID(req *http.Request, orderID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func withOrderAndItemID(req *http.Request, orderID, itemID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", orderID.String())
	ctx.URLParams.Add("itemId", itemID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestAdminListOrdersAppliesFilters(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		listFn: func(ctx context.Context, params pagination.Params, filters internalorders.OrderFilters) (*internalorders.OrderList, error) {
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusPending {
				t.Fatalf("unexpected status filter %v", filters.Status)
			}
			if filters.Query != "1001" {
				t.Fatalf("unexpected query %q", filters.Query)
			}
			return &internalorders.OrderList{Orders: []models.Order{{ID: orderID}}}, nil
		},
	}

	handler := AdminListOrders(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&status=pending&q=1001", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data internalorders.OrderList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].ID != orderID {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestAdminListOrdersRejectsBadStatus(t *testing.T) {
	handler := AdminListOrders(stubOrdersService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/?status=bogus", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderDetail(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		getFn: func(ctx context.Context, id uuid.UUID) (*internalorders.OrderDetail, error) {
			if id != orderID {
				t.Fatalf("unexpected id %s", id)
			}
			return &internalorders.OrderDetail{Order: models.Order{ID: orderID}}, nil
		},
	}

	handler := AdminOrderDetail(svc, nil)
	req := withOrderID(httptest.NewRequest(http.MethodGet, "/", nil), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminOrderDetailRejectsBadID(t *testing.T) {
	handler := AdminOrderDetail(stubOrdersService{}, nil)

	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("orderId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminAssignCourier(t *testing.T) {
	orderID := uuid.New()
	courierID := uuid.New()
	called := false
	svc := stubOrdersService{
		assignFn: func(ctx context.Context, input internalorders.AssignCourierInput) error {
			called = true
			if input.OrderID != orderID || input.CourierID != courierID {
				t.Fatalf("unexpected input %+v", input)
			}
			return nil
		},
	}

	body, _ := json.Marshal(map[string]string{"courier_id": courierID.String()})
	handler := AdminAssignCourier(svc, nil)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("service not called")
	}
}

func TestAdminAssignCourierConflictPropagates(t *testing.T) {
	svc := stubOrdersService{
		assignFn: func(ctx context.Context, input internalorders.AssignCourierInput) error {
			return pkgerrors.New(pkgerrors.CodeConflict, "courier is not active")
		},
	}

	body, _ := json.Marshal(map[string]string{"courier_id": uuid.New().String()})
	handler := AdminAssignCourier(svc, nil)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAdminAssignCourierRejectsUnknownFields(t *testing.T) {
	handler := AdminAssignCourier(stubOrdersService{}, nil)
	body := []byte(`{"courier_id":"` + uuid.New().String() + `","extra":true}`)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminRemoveAndRestoreItem(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	var removed, restored bool
	svc := stubOrdersService{
		removeFn: func(ctx context.Context, oID, iID uuid.UUID) error {
			removed = oID == orderID && iID == itemID
			return nil
		},
		restoreFn: func(ctx context.Context, oID, iID uuid.UUID) error {
			restored = oID == orderID && iID == itemID
			return nil
		},
	}

	resp := httptest.NewRecorder()
	AdminRemoveItem(svc, nil).ServeHTTP(resp, withOrderAndItemID(httptest.NewRequest(http.MethodPost, "/", nil), orderID, itemID))
	if resp.Code != http.StatusOK || !removed {
		t.Fatalf("remove: code %d removed %v", resp.Code, removed)
	}

	resp = httptest.NewRecorder()
	AdminRestoreItem(svc, nil).ServeHTTP(resp, withOrderAndItemID(httptest.NewRequest(http.MethodPost, "/", nil), orderID, itemID))
	if resp.Code != http.StatusOK || !restored {
		t.Fatalf("restore: code %d restored %v", resp.Code, restored)
	}
}

func TestAdminOverrideTotal(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		overrideFn: func(ctx context.Context, input internalorders.OverrideTotalInput) error {
			if !input.Total.Equal(decimal.RequireFromString("150.00")) {
				t.Fatalf("unexpected total %s", input.Total)
			}
			return nil
		},
	}

	body := []byte(`{"total":"150.00"}`)
	handler := AdminOverrideTotal(svc, nil)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminSetManualBalance(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		setBalanceFn: func(ctx context.Context, input internalorders.ManualBalanceInput) error {
			if !input.Balance.Equal(decimal.RequireFromString("42.50")) {
				t.Fatalf("unexpected balance %s", input.Balance)
			}
			return nil
		},
	}

	body := []byte(`{"balance":"42.50"}`)
	handler := AdminSetManualBalance(svc, nil)
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), orderID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminListCouriersDefaultsToActive(t *testing.T) {
	svc := stubOrdersService{
		couriersFn: func(ctx context.Context, activeOnly bool) ([]models.Courier, error) {
			if !activeOnly {
				t.Fatal("expected activeOnly")
			}
			return []models.Courier{{ID: uuid.New(), Name: "North Route"}}, nil
		},
	}

	handler := AdminListCouriers(svc, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	allResp := httptest.NewRecorder()
	svcAll := stubOrdersService{
		couriersFn: func(ctx context.Context, activeOnly bool) ([]models.Courier, error) {
			if activeOnly {
				t.Fatal("expected all couriers")
			}
			return nil, nil
		},
	}
	AdminListCouriers(svcAll, nil).ServeHTTP(allResp, httptest.NewRequest(http.MethodGet, "/?all=true", nil))
	if allResp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", allResp.Code)
	}
}
