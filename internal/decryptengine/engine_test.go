package decryptengine

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/rkoshiba/wxforensic/internal/keycache"
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// buildPage mirrors internal/pagecrypto's own test helper: a valid
// encrypted page for pageNum under keys/salt.
func buildPage(t *testing.T, keys model.DerivedKeys, salt model.Salt, pageNum int64, plain []byte) []byte {
	t.Helper()
	cfg := pagecrypto.V4
	offset := 0
	if pageNum == 0 {
		offset = cfg.SaltSize
	}

	iv := make([]byte, cfg.IVSize)
	if _, err := rand.Read(iv); err != nil {
		t.Fatal(err)
	}

	block, err := aes.NewCipher(keys.EncKey[:])
	if err != nil {
		t.Fatal(err)
	}
	cipherBody := append([]byte(nil), plain...)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherBody, cipherBody)

	page := make([]byte, cfg.PageSize)
	if pageNum == 0 {
		copy(page[:cfg.SaltSize], salt[:])
	}
	copy(page[offset:cfg.PageSize-cfg.Reserve], cipherBody)
	copy(page[cfg.PageSize-cfg.Reserve:], iv)

	dataEnd := cfg.PageSize - cfg.Reserve + cfg.IVSize
	mac := hmac.New(cfg.NewHash, keys.MacKey[:])
	mac.Write(page[offset:dataEnd])
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], uint32(pageNum+1))
	mac.Write(seq[:])
	copy(page[dataEnd:dataEnd+cfg.HMACSize], mac.Sum(nil))

	return page
}

func writeTestDB(t *testing.T, path string, secret model.MasterSecret, salt model.Salt, pages int) {
	t.Helper()
	cfg := pagecrypto.V4
	keys := cfg.DeriveKeys(secret, salt)

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for p := 0; p < pages; p++ {
		plainLen := cfg.PageSize - cfg.Reserve
		if p == 0 {
			plainLen -= cfg.SaltSize
		}
		plain := make([]byte, plainLen)
		for i := range plain {
			plain[i] = byte(p*7 + i)
		}
		page := buildPage(t, keys, salt, int64(p), plain)
		if _, err := f.Write(page); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDecryptFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	var secret model.MasterSecret
	secret[0] = 0x9
	var salt model.Salt
	salt[2] = 0x5

	in := filepath.Join(dir, "msg.db")
	out := filepath.Join(dir, "msg.decrypted.db")
	writeTestDB(t, in, secret, salt, 5)

	cache := keycache.New(pagecrypto.V4, 0)
	e := New(pagecrypto.V4, cache)

	var progressCalls int
	result, err := e.DecryptFile(context.Background(), in, out, secret, SmallFileProfile(), func(w, total int64) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("DecryptFile: %v", err)
	}
	if result.TotalPages != 5 || result.PagesOK != 5 || result.PagesFailed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	outData, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(outData[:len(pagecrypto.V4.SQLiteHeader)]) != pagecrypto.V4.SQLiteHeader {
		t.Fatalf("output file missing SQLite header")
	}
	if len(outData) != int(pagecrypto.V4.PageSize)*5 {
		t.Fatalf("output size %d, want %d", len(outData), pagecrypto.V4.PageSize*5)
	}
}

func TestDecryptFile_WrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	var secret, wrong model.MasterSecret
	secret[0] = 1
	wrong[0] = 2
	var salt model.Salt

	in := filepath.Join(dir, "msg.db")
	out := filepath.Join(dir, "msg.decrypted.db")
	writeTestDB(t, in, secret, salt, 1)

	cache := keycache.New(pagecrypto.V4, 0)
	e := New(pagecrypto.V4, cache)

	_, err := e.DecryptFile(context.Background(), in, out, wrong, SmallFileProfile(), nil)
	if !werrors.Is(err, werrors.KindKeyInvalid) {
		t.Fatalf("expected KindKeyInvalid, got %v", err)
	}
}

func TestProcessPage_ZeroPagePassesThrough(t *testing.T) {
	e := New(pagecrypto.V4, keycache.New(pagecrypto.V4, 0))
	zero := make([]byte, pagecrypto.V4.PageSize)
	var keys model.DerivedKeys

	got := e.processPage(keys, model.PageTask{PageNum: 3, Data: zero})
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if string(got.Data) != string(zero) {
		t.Fatalf("zero page should pass through unchanged")
	}
}

func TestProcessPage_WrongKeyPassesThroughOriginalBytes(t *testing.T) {
	var secret, wrong model.MasterSecret
	secret[0] = 9
	wrong[0] = 10
	var salt model.Salt

	e := New(pagecrypto.V4, keycache.New(pagecrypto.V4, 0))
	keys := e.cfg.DeriveKeys(secret, salt)
	wrongKeys := e.cfg.DeriveKeys(wrong, salt)

	plain := make([]byte, int(pagecrypto.V4.PageSize)-int(pagecrypto.V4.Reserve)-int(pagecrypto.V4.SaltSize))
	page := buildPage(t, keys, salt, 0, plain)

	got := e.processPage(wrongKeys, model.PageTask{PageNum: 0, Data: page})
	if got.Err != nil {
		t.Fatalf("a bad-HMAC page degrades to passthrough, not an explicit error: %v", got.Err)
	}
	if string(got.Data) != string(page) {
		t.Fatalf("expected original ciphertext bytes to pass through unchanged on decrypt failure")
	}
}

func TestDecryptFile_AlreadyDecryptedRejected(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "plain.db")
	page := make([]byte, pagecrypto.V4.PageSize)
	copy(page, pagecrypto.V4.SQLiteHeader)
	if err := os.WriteFile(in, page, 0o644); err != nil {
		t.Fatal(err)
	}

	cache := keycache.New(pagecrypto.V4, 0)
	e := New(pagecrypto.V4, cache)

	var secret model.MasterSecret
	_, err := e.DecryptFile(context.Background(), in, filepath.Join(dir, "out.db"), secret, SmallFileProfile(), nil)
	if !werrors.Is(err, werrors.KindFormatInvalid) {
		t.Fatalf("expected KindFormatInvalid, got %v", err)
	}
}
