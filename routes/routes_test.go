package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"messmate/utils"

	"github.com/gin-gonic/gin"
)

func TestProducerEndpointsRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&Controllers{})

	endpoints := []struct {
		method, path string
	}{
		{http.MethodPost, "/verify-token"},
		{http.MethodPost, "/verify-qr"},
		{http.MethodPost, "/check-verified"},
		{http.MethodPost, "/add-meal"},
		{http.MethodGet, "/producer/stats"},
		{http.MethodPost, "/producer/send-reminders"},
	}
	for _, ep := range endpoints {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(ep.method, ep.path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", ep.method, ep.path, w.Code)
		}
	}
}

func TestProducerEndpointsRejectStudents(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := SetupRouter(&Controllers{})

	token, err := utils.GenerateJWT("asha@campus.edu", "student")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/verify-token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("student calling /verify-token = %d, want 403", w.Code)
	}
}
