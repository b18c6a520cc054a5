// Package qr normaliza y valida los payloads de código QR que devuelve el
// flujo de automatización. El upstream a veces responde base64 pelado y a
// veces un data URI completo (o malformado); el consumidor tolera ambos.
package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const pngPrefix = "data:image/png;base64,"

// ErrImageDecode indica que el payload llegó pero no decodifica como imagen.
// Es distinto de una falla de fetch: el reintento debe volver a pedir el QR.
var ErrImageDecode = errors.New("qr: el payload no decodifica como imagen")

// Normalize convierte un payload crudo en un data URI mostrable. Es
// idempotente: un data URI de imagen ya formado se devuelve tal cual y
// cualquier prefijo malformado se descarta antes de re-envolver como PNG.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:image") {
		return raw
	}
	if i := strings.Index(raw, "base64,"); i >= 0 {
		raw = raw[i+len("base64,"):]
	}
	return pngPrefix + raw
}

// Validate verifica que el payload (crudo o normalizado) decodifique como
// una imagen real. Devuelve ErrImageDecode envuelto con el detalle.
func Validate(payload string) error {
	data, err := decodeBase64(stripDataURI(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return nil
}

// GenerateFromCode dibuja localmente el QR para un código de emparejamiento,
// para cuando la automatización devuelve `code` sin imagen.
func GenerateFromCode(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("qr: generar desde código: %w", err)
	}
	return pngPrefix + base64.StdEncoding.EncodeToString(png), nil
}

func stripDataURI(payload string) string {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, "base64,"); i >= 0 {
		return payload[i+len("base64,"):]
	}
	return payload
}

func decodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
