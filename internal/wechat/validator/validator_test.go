package validator

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rkoshiba/wxforensic/internal/keycache"
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
)

// buildReferencePage constructs a page-0-shaped buffer that satisfies
// pagecrypto.V4's HMAC domain, mirroring internal/pagecrypto's own test
// helper since that package's macDomain is unexported.
func buildReferencePage(t *testing.T, keys model.DerivedKeys, salt model.Salt) []byte {
	t.Helper()
	cfg := pagecrypto.V4

	page := make([]byte, cfg.PageSize)
	copy(page[:cfg.SaltSize], salt[:])

	plain := make([]byte, cfg.PageSize-cfg.Reserve-cfg.SaltSize)
	copy(plain, "reference page plaintext")

	iv := make([]byte, cfg.IVSize)
	if _, err := rand.Read(iv); err != nil {
		t.Fatal(err)
	}

	block, err := aes.NewCipher(keys.EncKey[:])
	if err != nil {
		t.Fatal(err)
	}
	cipherText := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, plain)

	copy(page[cfg.SaltSize:cfg.PageSize-cfg.Reserve], cipherText)
	copy(page[cfg.PageSize-cfg.Reserve:], iv)

	dataEnd := cfg.PageSize - cfg.Reserve + cfg.IVSize
	macInput := make([]byte, 0, dataEnd-cfg.SaltSize+4)
	macInput = append(macInput, page[cfg.SaltSize:dataEnd]...)
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], 1) // pageNum(0)+1
	macInput = append(macInput, seq[:]...)

	mac := hmac.New(sha512.New, keys.MacKey[:])
	mac.Write(macInput)
	copy(page[cfg.PageSize-cfg.HMACSize:], mac.Sum(nil))

	return page
}

func TestNewTrialDecrypt_AcceptsCorrectSecret(t *testing.T) {
	dir := t.TempDir()
	secret := model.MasterSecret{}
	for i := range secret {
		secret[i] = byte(i + 1)
	}

	var salt model.Salt
	for i := range salt {
		salt[i] = byte(i)
	}

	cache := keycache.New(pagecrypto.V4, 0)
	keys := cache.GetOrCompute(secret, salt)
	page := buildReferencePage(t, keys, salt)

	dbPath := filepath.Join(dir, "db_storage", "message")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dbPath, "message_0.db"), page, 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := NewTrialDecrypt(pagecrypto.V4, cache, model.PlatformWindows, dir)
	if err != nil {
		t.Fatalf("NewTrialDecrypt failed: %v", err)
	}

	if !v.Validate(secret) {
		t.Fatalf("expected correct secret to validate")
	}

	var wrong model.MasterSecret
	if v.Validate(wrong) {
		t.Fatalf("expected wrong secret to fail validation")
	}
}

func TestNewKnownValue_OnlyAcceptsExact(t *testing.T) {
	expected := model.MasterSecret{}
	for i := range expected {
		expected[i] = byte(i)
	}
	v := NewKnownValue(expected)

	if !v.Validate(expected) {
		t.Fatalf("expected exact match to validate")
	}

	other := expected
	other[0] ^= 0xFF
	if v.Validate(other) {
		t.Fatalf("expected mismatched candidate to fail")
	}
}

func TestValidate_TracksStats(t *testing.T) {
	expected := model.MasterSecret{}
	for i := range expected {
		expected[i] = byte(i)
	}
	v := NewKnownValue(expected)

	v.Validate(expected)
	wrong := expected
	wrong[0] ^= 0xFF
	v.Validate(wrong)
	v.Validate(wrong)

	stats := v.Stats()
	if stats.ValidatorAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", stats.ValidatorAttempts)
	}
	if stats.ValidatorSuccess != 1 {
		t.Fatalf("expected 1 success, got %d", stats.ValidatorSuccess)
	}
	if stats.ValidatorFailure != 2 {
		t.Fatalf("expected 2 failures, got %d", stats.ValidatorFailure)
	}
}
