package decryptengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rkoshiba/wxforensic/internal/keycache"
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
)

func TestDecryptTree_MirrorsStructureAndSkipsTinyFiles(t *testing.T) {
	root := t.TempDir()
	outRoot := t.TempDir()

	var secret model.MasterSecret
	secret[3] = 0x11
	var salt model.Salt
	salt[0] = 0x9

	if err := os.MkdirAll(filepath.Join(root, "account1"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestDB(t, filepath.Join(root, "account1", "message_0.db"), secret, salt, 2)

	// A tiny file under the 1 KiB floor must be skipped.
	if err := os.WriteFile(filepath.Join(root, "account1", "tiny.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := keycache.New(pagecrypto.V4, 0)
	e := New(pagecrypto.V4, cache)

	result, err := e.DecryptTree(context.Background(), root, outRoot, secret, 2)
	if err != nil {
		t.Fatalf("DecryptTree: %v", err)
	}
	if len(result.Success) != 1 {
		t.Fatalf("expected 1 successful file, got %d (failed=%v)", len(result.Success), result.Failed)
	}

	wantOut := filepath.Join(outRoot, "account1", "decrypted_message_0.db")
	if _, err := os.Stat(wantOut); err != nil {
		t.Fatalf("expected mirrored output at %s: %v", wantOut, err)
	}
	if _, err := os.Stat(filepath.Join(outRoot, "account1", "decrypted_tiny.db")); err == nil {
		t.Fatalf("tiny file should have been skipped, not decrypted")
	}
}
