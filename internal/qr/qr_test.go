package qr

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"base64 pelado", "iVBORw0KGgo=", "data:image/png;base64,iVBORw0KGgo="},
		{"data uri completo", "data:image/png;base64,iVBORw0KGgo=", "data:image/png;base64,iVBORw0KGgo="},
		{"data uri jpeg intacto", "data:image/jpeg;base64,AAAA", "data:image/jpeg;base64,AAAA"},
		{"prefijo malformado", "data:application/octet;base64,iVBORw0KGgo=", "data:image/png;base64,iVBORw0KGgo="},
		{"espacios alrededor", "  iVBORw0KGgo=  ", "data:image/png;base64,iVBORw0KGgo="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, se esperaba %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotente(t *testing.T) {
	inputs := []string{
		"iVBORw0KGgo=",
		"data:image/png;base64,iVBORw0KGgo=",
		"data:texto-roto;base64,AAAA",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize no es idempotente para %q: %q != %q", in, once, twice)
		}
	}
}

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	uri, err := GenerateFromCode("2@AbCdEf123456")
	if err != nil {
		t.Fatalf("GenerateFromCode: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("el QR generado no es un data URI PNG: %.40q", uri)
	}
	if err := Validate(uri); err != nil {
		t.Fatalf("el QR generado debería validar como imagen: %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no es base64", "$$$$ esto no es base64 $$$$"},
		{"base64 sin imagen", "aG9sYSBtdW5kbw=="},
		{"data uri con basura", "data:image/png;base64,aG9sYQ=="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payload)
			if !errors.Is(err, ErrImageDecode) {
				t.Errorf("Validate(%q) = %v, se esperaba ErrImageDecode", tt.payload, err)
			}
		})
	}
}
