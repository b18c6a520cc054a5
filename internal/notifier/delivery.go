package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Delivery hace el POST firmado al webhook de notificación del cliente,
// con reintentos y backoff lineal.
type Delivery struct {
	client     *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewDelivery(log *zap.Logger, maxRetries int) *Delivery {
	return &Delivery{
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
		maxRetries: maxRetries,
	}
}

func (d *Delivery) Deliver(ctx context.Context, url, secret string, event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("delivery: marshal: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			d.log.Info("delivery: reintento", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		// el body se consume en cada intento, la request se arma de nuevo
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("delivery: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "ContactPulse/1.2")
		if secret != "" {
			req.Header.Set("X-Pulse-Signature", Sign(payload, secret))
		}

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("delivery: request: %w", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			d.log.Info("delivery: entregado", zap.String("webhook", url), zap.Int("status", resp.StatusCode))
			return nil
		}
		lastErr = fmt.Errorf("delivery: status %d", resp.StatusCode)
	}

	return fmt.Errorf("delivery: falló tras %d intentos: %w", d.maxRetries+1, lastErr)
}

// Sign calcula la firma HMAC-SHA256 que viaja en X-Pulse-Signature.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature es el espejo de Sign, para que los receptores validen.
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}
