package automation

import (
	"encoding/json"
	"fmt"
)

// QRPayload es lo que el flujo `qr` devuelve dentro de response[0].data.
// Según la versión del flujo puede venir la imagen en base64, el código de
// emparejamiento, o ambos.
type QRPayload struct {
	Base64      string `json:"base64"`
	Code        string `json:"code"`
	PairingCode string `json:"pairingCode"`
}

type qrEnvelopeItem struct {
	Data QRPayload `json:"data"`
}

// ParseQREnvelope extrae el payload de QR del sobre que devuelve la
// automatización (un array donde solo se consulta el primer elemento).
// "Sin QR disponible" (array vacío o data sin contenido) devuelve nil sin
// error; un sobre presente pero con otra forma devuelve ErrMalformedResponse.
func ParseQREnvelope(raw json.RawMessage) (*QRPayload, error) {
	var envelope []qrEnvelopeItem
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(envelope) == 0 {
		return nil, nil
	}

	payload := envelope[0].Data
	if payload.Base64 == "" && payload.Code == "" && payload.PairingCode == "" {
		return nil, nil
	}
	return &payload, nil
}
