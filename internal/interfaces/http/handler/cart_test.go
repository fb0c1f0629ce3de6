package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcart "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

func setupCartAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	svc, err := appcart.NewService(cart.DefaultPolicy(), storage.NewMemoryKV(), nil, appcart.Options{}, zap.NewNop())
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.NewRouter(engine).Register(NewCartHandler(svc)).Setup()
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func cartData(t *testing.T, resp dto.Response) dto.CartResponse {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out dto.CartResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGetEmptyCart(t *testing.T) {
	engine := setupCartAPI(t)

	w, resp := doJSON(t, engine, http.MethodGet, "/api/v1/carts/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	body := cartData(t, resp)
	assert.Equal(t, "s1", body.SessionID)
	assert.Empty(t, body.Items)
	assert.Equal(t, "5.99", body.Shipping)
	assert.Equal(t, "5.99", body.Total)
}

func TestAddItemFlow(t *testing.T) {
	engine := setupCartAPI(t)

	w, resp := doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", dto.AddItemRequest{
		ProductID: "p1", Name: "Mug", SKU: "SKU-1", UnitPrice: "30.00", Quantity: 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := cartData(t, resp)
	assert.Equal(t, "60.00", body.Subtotal)
	assert.Equal(t, "13.20", body.Tax)
	assert.Equal(t, "0.00", body.Shipping)
	assert.Equal(t, "73.20", body.Total)
	assert.Equal(t, 2, body.ItemCount)
}

func TestAddItemValidation(t *testing.T) {
	engine := setupCartAPI(t)

	t.Run("missing fields", func(t *testing.T) {
		w, resp := doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", map[string]any{
			"product_id": "p1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("bad price", func(t *testing.T) {
		w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", dto.AddItemRequest{
			ProductID: "p1", Name: "Mug", UnitPrice: "a lot", Quantity: 1,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("zero quantity", func(t *testing.T) {
		w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", dto.AddItemRequest{
			ProductID: "p1", Name: "Mug", UnitPrice: "1.00", Quantity: 0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateAndRemove(t *testing.T) {
	engine := setupCartAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", dto.AddItemRequest{
		ProductID: "p1", Name: "Mug", UnitPrice: "10.00", Quantity: 5,
	})

	w, resp := doJSON(t, engine, http.MethodPut, "/api/v1/carts/s1/items/p1", dto.UpdateQuantityRequest{Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, cartData(t, resp).ItemCount)

	w, resp = doJSON(t, engine, http.MethodDelete, "/api/v1/carts/s1/items/p1?quantity=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, cartData(t, resp).ItemCount)

	w, resp = doJSON(t, engine, http.MethodDelete, "/api/v1/carts/s1/items/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, cartData(t, resp).Items)
}

func TestRemoveMissingItem(t *testing.T) {
	engine := setupCartAPI(t)

	w, resp := doJSON(t, engine, http.MethodDelete, "/api/v1/carts/s1/items/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestClearCart(t *testing.T) {
	engine := setupCartAPI(t)

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/carts/s1/items", dto.AddItemRequest{
		ProductID: "p1", Name: "Mug", UnitPrice: "10.00", Quantity: 1,
	})

	w, resp := doJSON(t, engine, http.MethodDelete, "/api/v1/carts/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := cartData(t, resp)
	assert.Empty(t, body.Items)
	assert.Equal(t, "5.99", body.Total)
}

func TestRequestIDPropagation(t *testing.T) {
	engine := setupCartAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/s1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}
