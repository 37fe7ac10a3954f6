package cryptox

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dmitrijs2005/paramashop/internal/common"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	key := common.GenerateRandByteArray(32)
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}
	return c
}

func TestSealOpen_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range [][]byte{
		[]byte(""),
		[]byte("x"),
		[]byte(`{"items":[{"product_id":1,"quantity":2}],"total":199.0}`),
		bytes.Repeat([]byte{0xAB}, 4096),
	} {
		token, err := c.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal error: %v", err)
		}
		got, err := c.Open(token)
		if err != nil {
			t.Fatalf("Open error: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestSeal_NonDeterministic(t *testing.T) {
	c := newTestCipher(t)
	a, _ := c.Seal([]byte("payload"))
	b, _ := c.Seal([]byte("payload"))
	if bytes.Equal(a, b) {
		t.Fatal("two Seal calls produced identical tokens")
	}
}

func TestOpen_Corrupted(t *testing.T) {
	c := newTestCipher(t)
	token, err := c.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	token[len(token)-1] ^= 0x01
	if _, err := c.Open(token); !errors.Is(err, common.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for corrupted token, got %v", err)
	}
}

func TestOpen_Truncated(t *testing.T) {
	c := newTestCipher(t)
	if _, err := c.Open([]byte("short")); !errors.Is(err, common.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for truncated token, got %v", err)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	c1 := newTestCipher(t)
	c2 := newTestCipher(t)

	token, err := c1.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	if _, err := c2.Open(token); !errors.Is(err, common.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity under a different key, got %v", err)
	}
}

func TestParseKey(t *testing.T) {
	raw := common.GenerateRandByteArray(32)

	key, err := ParseKey(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("ParseKey std error: %v", err)
	}
	if !bytes.Equal(key, raw) {
		t.Fatal("std decode mismatch")
	}

	if _, err := ParseKey(base64.StdEncoding.EncodeToString(raw[:16])); err == nil {
		t.Fatal("expected error for short key")
	}
	if _, err := ParseKey("***"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestHashVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !VerifyPassword(encoded, "s3cret") {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword(encoded, "wrong") {
		t.Fatal("expected mismatching password to fail")
	}
	if VerifyPassword("garbage", "s3cret") {
		t.Fatal("expected malformed hash to fail")
	}
}

func TestHashPassword_SaltVaries(t *testing.T) {
	a, _ := HashPassword("same")
	b, _ := HashPassword("same")
	if a == b {
		t.Fatal("two hashes of the same password are identical; salt not applied")
	}
}
