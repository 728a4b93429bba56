// Package testutil provides shared test helpers for setting up journals and codecs.
package testutil

import (
	"bytes"
	"crypto/aes"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/vellum/internal/codec"
	"github.com/starford/vellum/internal/storage"
)

// TestJournal creates a temporary journal directory with a storage.Provider.
func TestJournal(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestCodec returns a codec keyed with a fixed 32-byte test key.
func TestCodec(t *testing.T) *codec.Codec {
	t.Helper()
	block, err := aes.NewCipher(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatal(err)
	}
	c, err := codec.New(block)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// WriteEncrypted stores plain as the encrypted entry name in dir.
func WriteEncrypted(t *testing.T, c *codec.Codec, dir, name string, plain []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Encrypt(&buf, bytes.NewReader(plain)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

// ReadDecrypted returns the plaintext of the encrypted entry name in dir.
func ReadDecrypted(t *testing.T, c *codec.Codec, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := c.Decrypt(&out, bytes.NewReader(data)); err != nil {
		t.Fatalf("decrypt %s: %v", name, err)
	}
	return out.Bytes()
}
