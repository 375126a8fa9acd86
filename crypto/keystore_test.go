package crypto

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.keystore")

	if err := SaveToKeystore(path, key, "hunter2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "hunter2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), key.Bytes()) {
		t.Fatal("loaded key differs from the saved key")
	}
	if loaded.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatal("loaded key derives a different address")
	}

	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatal("expected decryption failure with wrong passphrase")
	}
}

func TestKeystoreRejectsMissingInputs(t *testing.T) {
	if err := SaveToKeystore(filepath.Join(t.TempDir(), "k"), nil, ""); err == nil {
		t.Fatal("expected error for nil key")
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := SaveToKeystore("", key, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := LoadFromKeystore("", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
