package notifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func TestDeliverSignsPayload(t *testing.T) {
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Pulse-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDelivery(zap.NewNop(), 0)
	err := d.Deliver(context.Background(), srv.URL, "mi-secreto", map[string]any{"type": "qr.updated"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if gotSig == "" {
		t.Fatal("falta la cabecera X-Pulse-Signature")
	}
	if !VerifySignature(gotBody, gotSig, "mi-secreto") {
		t.Error("la firma no valida contra el body recibido")
	}
	if VerifySignature(gotBody, gotSig, "otro-secreto") {
		t.Error("la firma no debería validar con otro secreto")
	}
}

func TestDeliverSkipsSignatureWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Pulse-Signature") != "" {
			t.Error("sin secreto no debería haber firma")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDelivery(zap.NewNop(), 0)
	if err := d.Deliver(context.Background(), srv.URL, "", map[string]any{"a": 1}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliverRetriesWithFullBody(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			t.Error("el body llegó vacío en un reintento")
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDelivery(zap.NewNop(), 2)
	if err := d.Deliver(context.Background(), srv.URL, "s", map[string]any{"type": "connection.created"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, se esperaban 2", hits.Load())
	}
}

func TestDeliverGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDelivery(zap.NewNop(), 1)
	if err := d.Deliver(context.Background(), srv.URL, "", map[string]any{}); err == nil {
		t.Fatal("debería fallar cuando el receptor nunca responde 2xx")
	}
}
