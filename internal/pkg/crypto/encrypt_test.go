package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	sealed, err := EncryptString("secreto-webhook-123", "clave-maestra")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if strings.Contains(sealed, "secreto") {
		t.Error("el texto cifrado no debe contener el plaintext")
	}

	plain, err := DecryptString(sealed, "clave-maestra")
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if plain != "secreto-webhook-123" {
		t.Errorf("plaintext = %q", plain)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	sealed, err := EncryptString("dato", "clave-a")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if _, err := DecryptString(sealed, "clave-b"); err == nil {
		t.Fatal("descifrar con otra clave debería fallar")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	if _, err := Decrypt([]byte("x"), "clave"); err == nil {
		t.Fatal("un ciphertext más corto que el nonce debería fallar")
	}
}
