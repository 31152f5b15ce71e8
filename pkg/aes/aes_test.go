package aes

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatal(err)
	}
	plain := "晚上一起吃饭吗？"
	ct, err := Encrypt(plain, key)
	if err != nil {
		t.Fatal(err)
	}
	if ct == plain {
		t.Fatal("ciphertext equals plaintext")
	}
	got, err := Decrypt(ct, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != plain {
		t.Fatalf("Decrypt = %q, want %q", got, plain)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1, _ := NewKey()
	key2, _ := NewKey()
	ct, err := Encrypt("secret", key1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(ct, key2); err == nil {
		t.Fatal("expected authentication failure with wrong key")
	}
}

func TestNonceUniqueness(t *testing.T) {
	key, _ := NewKey()
	a, _ := Encrypt("same", key)
	b, _ := Encrypt("same", key)
	if a == b {
		t.Fatal("two encryptions produced identical ciphertext")
	}
}

func TestDecryptTruncated(t *testing.T) {
	key, _ := NewKey()
	if _, err := Decrypt("YWI=", key); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
