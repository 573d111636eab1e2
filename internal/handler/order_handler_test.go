package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloomcart/internal/middleware"
	"bloomcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Place(ctx context.Context, ownerRef string, c model.Cart) (*model.Order, error) {
	args := m.Called(ctx, ownerRef, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetForOwner(ctx context.Context, ownerRef string, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, ownerRef, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListByOwner(ctx context.Context, ownerRef string) ([]model.Order, error) {
	args := m.Called(ctx, ownerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ConfirmDelivery(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func testOrder(id uuid.UUID, ownerRef string) *model.Order {
	now := time.Now()
	return &model.Order{
		ID:       id,
		OwnerRef: ownerRef,
		Items: []model.LineItem{
			{ProductRef: "sku-1", Name: "Rose Bouquet", UnitPrice: 10_000, Quantity: 3},
		},
		ShippingAddress: model.ShippingAddress{FullName: "Deisy", Address: "Jl. Melati 5", PhoneNumber: "0812"},
		ItemsPrice:      30_000,
		ShippingPrice:   15_000,
		TotalPrice:      45_000,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOrderHandler_List(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Authenticated caller gets their orders", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ListByOwner", mock.Anything, "user-1").
			Return([]model.Order{*testOrder(uuid.New(), "user-1")}, nil)

		h := NewOrderHandler(svc, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer user-1")
		w := httptest.NewRecorder()

		middleware.Identity(http.HandlerFunc(h.List)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var orders []model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&orders))
		assert.Len(t, orders, 1)
		svc.AssertExpectations(t)
	})

	t.Run("Empty list serialises as array", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ListByOwner", mock.Anything, "user-1").Return([]model.Order(nil), nil)

		h := NewOrderHandler(svc, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer user-1")
		w := httptest.NewRecorder()

		middleware.Identity(http.HandlerFunc(h.List)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("Anonymous caller rejected", func(t *testing.T) {
		svc := new(MockOrderService)
		h := NewOrderHandler(svc, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		w := httptest.NewRecorder()

		middleware.Identity(http.HandlerFunc(h.List)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		svc.AssertNotCalled(t, "ListByOwner")
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	tests := []struct {
		name           string
		orderIDStr     string
		authHeader     string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Owner sees their order",
			orderIDStr:     orderID.String(),
			authHeader:     "Bearer user-1",
			mockReturn:     testOrder(orderID, "user-1"),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Foreign order hidden",
			orderIDStr:     orderID.String(),
			authHeader:     "Bearer user-2",
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Invalid order ID",
			orderIDStr:     "not-a-uuid",
			authHeader:     "Bearer user-1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Anonymous caller rejected",
			orderIDStr:     orderID.String(),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			if tt.expectService {
				svc.On("GetForOwner", mock.Anything, mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)
			}

			h := NewOrderHandler(svc, logger)

			req := httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.orderIDStr, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			middleware.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h.GetByID(w, r, tt.orderIDStr)
			})).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if !tt.expectService {
				svc.AssertNotCalled(t, "GetForOwner")
			}
		})
	}
}

func TestOrderHandler_ConfirmPayment(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	tests := []struct {
		name           string
		body           string
		mockReturn     *model.Order
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           fmt.Sprintf(`{"orderId":%q}`, orderID),
			mockReturn:     testOrder(orderID, "user-1"),
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Duplicate confirmation",
			body:           fmt.Sprintf(`{"orderId":%q}`, orderID),
			mockError:      model.ErrAlreadyPaid,
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Unknown order",
			body:           fmt.Sprintf(`{"orderId":%q}`, orderID),
			mockError:      model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Invalid body",
			body:           "not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid order ID",
			body:           `{"orderId":"nope"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockOrderService)
			if tt.expectService {
				svc.On("ConfirmPayment", mock.Anything, orderID).Return(tt.mockReturn, tt.mockError)
			}

			h := NewOrderHandler(svc, logger)

			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment-confirmed", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.ConfirmPayment(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if !tt.expectService {
				svc.AssertNotCalled(t, "ConfirmPayment")
			}
		})
	}
}

func TestOrderHandler_ConfirmDelivery(t *testing.T) {
	logger := zerolog.Nop()
	orderID := uuid.New()

	t.Run("Unpaid order rejected", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ConfirmDelivery", mock.Anything, orderID).Return(nil, model.ErrNotPaid)

		h := NewOrderHandler(svc, logger)

		body := fmt.Sprintf(`{"orderId":%q}`, orderID)
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/delivery-confirmed", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		h.ConfirmDelivery(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Success", func(t *testing.T) {
		order := testOrder(orderID, "user-1")
		order.IsPaid = true
		order.IsDelivered = true

		svc := new(MockOrderService)
		svc.On("ConfirmDelivery", mock.Anything, orderID).Return(order, nil)

		h := NewOrderHandler(svc, logger)

		body := fmt.Sprintf(`{"orderId":%q}`, orderID)
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/delivery-confirmed", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		h.ConfirmDelivery(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got model.Order
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.True(t, got.IsDelivered)
	})
}
