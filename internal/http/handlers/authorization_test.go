// README: Handler authorization tests (checks that run before any service call).
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"courier/internal/http/handlers"
	"courier/internal/http/middleware"
	"courier/internal/modules/driver"
	"courier/internal/modules/location"
	"courier/internal/modules/wallet"
)

const testSecret = "handler-test-secret"

// buildTestRouter wires a minimal engine with the auth middleware. Nil-backed
// services are safe here because every asserted path returns before any
// service method runs.
func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(testSecret))
	admin := middleware.RequireRole(middleware.RoleAdmin)

	dh := handlers.NewDriverHandler(&driver.Service{})
	wh := handlers.NewWalletHandler(&wallet.Service{})
	lh := handlers.NewLocationHandler(&location.Service{})

	r.POST("/api/drivers", dh.Register)
	r.POST("/api/drivers/:id/verify", admin, dh.Verify)
	r.POST("/api/drivers/:id/wallet/penalty", admin, wh.Penalty)
	r.PUT("/api/drivers/:id/location", lh.Update)
	return r
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": uid}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + s
}

func doRequest(r *gin.Engine, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/drivers/d1/verify", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdminRoutesRejectDrivers(t *testing.T) {
	r := buildTestRouter()
	tok := token(t, "d1", "driver")

	for _, path := range []string{
		"/api/drivers/d1/verify",
		"/api/drivers/d1/wallet/penalty",
	} {
		w := doRequest(r, http.MethodPost, path, map[string]any{}, tok)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403 for driver role, got %d", path, w.Code)
		}
	}
}

func TestLocationUpdateRequiresOwnership(t *testing.T) {
	r := buildTestRouter()
	tok := token(t, "d1", "driver")

	w := doRequest(r, http.MethodPut, "/api/drivers/d2/location", map[string]any{"lat": 10.0, "lng": 106.0}, tok)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for mismatched driver id, got %d", w.Code)
	}

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Error.Code != "forbidden" {
		t.Errorf("error code = %q, want forbidden", resp.Error.Code)
	}
}

func TestRegisterRejectsInvalidJSON(t *testing.T) {
	r := buildTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/drivers", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token(t, "d1", "driver"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
