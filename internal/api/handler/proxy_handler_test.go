package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
)

type staticResolver struct {
	urls map[string]string
}

func (r *staticResolver) Resolve(_ context.Context, name string) (string, error) {
	url, ok := r.urls[name]
	if !ok {
		return "", automation.ErrEndpointNotConfigured
	}
	return url, nil
}

func proxyRouter(exec *automation.Executor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/api")
	NewProxyHandler(exec, zap.NewNop()).Register(group)
	return r
}

func postProxy(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/automation/proxy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestProxyRejectsUnknownEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no debería salir ninguna llamada")
	}))
	defer upstream.Close()

	exec := automation.NewExecutor(
		&staticResolver{urls: map[string]string{"qr": upstream.URL}},
		breaker.NewRegistry(3, 30*time.Second),
		time.Second,
		zap.NewNop(),
	)

	w := postProxy(t, proxyRouter(exec), `{"endpoint":"borrar-todo","data":{}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "allowed") {
		t.Errorf("la respuesta debería listar los endpoints permitidos: %s", w.Body.String())
	}
}

func TestProxyForwardsAllowedEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"data":{"base64":"abc"}}]`))
	}))
	defer upstream.Close()

	exec := automation.NewExecutor(
		&staticResolver{urls: map[string]string{automation.EndpointQR: upstream.URL}},
		breaker.NewRegistry(3, 30*time.Second),
		time.Second,
		zap.NewNop(),
	)

	w := postProxy(t, proxyRouter(exec), `{"endpoint":"qr","data":{"nombre_nora":"ventas"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestProxyReportsCircuitOpen(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	exec := automation.NewExecutor(
		&staticResolver{urls: map[string]string{automation.EndpointQR: upstream.URL}},
		breaker.NewRegistry(3, 30*time.Second),
		time.Second,
		zap.NewNop(),
	)
	router := proxyRouter(exec)

	// tres fallas abren el circuito
	for i := 0; i < 3; i++ {
		w := postProxy(t, router, `{"endpoint":"qr"}`)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("intento %d: status = %d", i+1, w.Code)
		}
	}

	w := postProxy(t, router, `{"endpoint":"qr"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("con el circuito abierto: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "retryAfter") {
		t.Errorf("debería informar cuánto esperar: %s", w.Body.String())
	}
}

func TestProxyReportsTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer upstream.Close()

	exec := automation.NewExecutor(
		&staticResolver{urls: map[string]string{automation.EndpointStatus: upstream.URL}},
		breaker.NewRegistry(3, 30*time.Second),
		50*time.Millisecond,
		zap.NewNop(),
	)

	w := postProxy(t, proxyRouter(exec), `{"endpoint":"estatus-instancia"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
