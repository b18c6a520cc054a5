package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
)

type staticResolver map[string]string

func (r staticResolver) Resolve(_ context.Context, name string) (string, error) {
	url, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEndpointNotConfigured, name)
	}
	return url, nil
}

func newTestExecutor(resolver Resolver) (*Executor, *breaker.Registry) {
	reg := breaker.NewRegistry(3, 30*time.Second)
	return NewExecutor(resolver, reg, 5*time.Second, zap.NewNop()), reg
}

func TestCallPassesThroughJSON(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = body
		w.Write([]byte(`[{"data":{"base64":"iVBOR"}}]`))
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(staticResolver{EndpointQR: srv.URL})

	raw, err := exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(gotBody) != `{"name":"ventas"}` {
		t.Errorf("cuerpo enviado = %s", gotBody)
	}
	if string(raw) != `[{"data":{"base64":"iVBOR"}}]` {
		t.Errorf("respuesta = %s", raw)
	}
}

func TestCallWrapsNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Workflow was started"))
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(staticResolver{EndpointStatus: srv.URL})

	raw, err := exec.Call(context.Background(), EndpointStatus, InstanceRequest{Name: "ventas"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	var parsed map[string]string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("la respuesta degradada debería ser JSON: %v", err)
	}
	if parsed["message"] != "Workflow was started" {
		t.Errorf("message = %q", parsed["message"])
	}
}

func TestCallNon2xxRecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream caído"))
	}))
	defer srv.Close()

	exec, reg := newTestExecutor(staticResolver{EndpointQR: srv.URL})

	_, err := exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"})
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("se esperaba *CallError, se obtuvo %v", err)
	}
	if callErr.Status != http.StatusBadGateway || callErr.Body != "upstream caído" {
		t.Errorf("CallError inesperado: %+v", callErr)
	}
	if failures, _ := reg.Snapshot("webhook-qr"); failures != 1 {
		t.Errorf("el breaker debería registrar 1 falla, tiene %d", failures)
	}
}

func TestCallOpensCircuitAfterThreeFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(staticResolver{EndpointQR: srv.URL})

	for i := 0; i < 3; i++ {
		if _, err := exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"}); err == nil {
			t.Fatal("las llamadas deberían fallar")
		}
	}

	_, err := exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"})
	var openErr *breaker.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("la cuarta llamada debería fallar con circuito abierto, fue %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("con el circuito abierto no debe salir tráfico: %d llamadas", got)
	}
}

func TestCallBreakerKeysAreIndependent(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer healthy.Close()

	exec, _ := newTestExecutor(staticResolver{
		EndpointQR:             failing.URL,
		EndpointCreateInstance: healthy.URL,
	})

	for i := 0; i < 3; i++ {
		exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"})
	}

	if _, err := exec.Call(context.Background(), EndpointCreateInstance, CreateInstanceRequest{Name: "ventas", Color: "#22c55e"}); err != nil {
		t.Fatalf("las fallas de qr no deben bloquear crear-instancia: %v", err)
	}
}

func TestCallUnresolvedEndpointMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(staticResolver{})

	_, err := exec.Call(context.Background(), EndpointQR, InstanceRequest{Name: "ventas"})
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("se esperaba ErrEndpointNotConfigured, fue %v", err)
	}
	if hits.Load() != 0 {
		t.Error("no debería haber tráfico con endpoint sin configurar")
	}
}

func TestParseQREnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *QRPayload
		wantErr error
	}{
		{"con base64", `[{"data":{"base64":"iVBORw0KGgo"}}]`, &QRPayload{Base64: "iVBORw0KGgo"}, nil},
		{"solo código", `[{"data":{"code":"2@abc","pairingCode":"XYZW-1234"}}]`, &QRPayload{Code: "2@abc", PairingCode: "XYZW-1234"}, nil},
		{"array vacío", `[]`, nil, nil},
		{"data vacía", `[{"data":{}}]`, nil, nil},
		{"sin campo data", `[{"otro":1}]`, nil, nil},
		{"no es array", `{"data":{"base64":"x"}}`, nil, ErrMalformedResponse},
		{"basura", `esto no es json`, nil, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQREnvelope(json.RawMessage(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, se esperaba %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error inesperado: %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("payload = %+v, se esperaba %+v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Fatalf("payload = %+v, se esperaba %+v", got, tt.want)
			}
		})
	}
}
