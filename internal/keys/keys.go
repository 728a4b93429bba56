// Package keys derives the journal's symmetric key from a passphrase.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/starford/vellum/internal/salt"
)

// KeySize is the length of the derived key in bytes.
const KeySize = 32

// Params are the Argon2id cost parameters. They are part of the on-disk
// format: salt record version 0 implies DefaultParams.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	Tag     string // Argon2 associated data
}

// DefaultParams are the fixed protocol parameters.
var DefaultParams = Params{
	Time:    1,
	Memory:  256 * 1024,
	Threads: 4,
	KeyLen:  KeySize,
	Tag:     "journal_key",
}

var errDestroyed = errors.New("keys: key destroyed")

// Key is a derived key held in locked memory.
type Key struct {
	buf *memguard.LockedBuffer
}

// Derive runs Argon2id over passphrase and s with p.Tag as associated data.
// The passphrase is wiped before Derive returns. Invalid parameters are a
// programming error and panic.
func Derive(passphrase []byte, s salt.Salt, p Params) *Key {
	defer memguard.WipeBytes(passphrase)

	if p.Time == 0 || p.Threads == 0 || p.Memory == 0 || p.KeyLen != KeySize {
		panic(fmt.Sprintf("keys: invalid argon2 parameters %+v", p))
	}

	raw := idKey(passphrase, s[:], nil, []byte(p.Tag), p.Time, p.Memory, p.Threads, p.KeyLen)

	// NewBufferFromBytes wipes raw after copying it into locked memory.
	buf := memguard.NewBufferFromBytes(raw)
	buf.Freeze()
	return &Key{buf: buf}
}

// Cipher builds the AES-256 block cipher keyed with k. The expanded key
// schedule lives on the Go heap until the block is garbage collected;
// Destroy cannot reach it.
func (k *Key) Cipher() (cipher.Block, error) {
	if !k.Alive() {
		return nil, errDestroyed
	}
	if k.buf.Size() != KeySize {
		return nil, fmt.Errorf("keys: key size %d, want %d", k.buf.Size(), KeySize)
	}
	block, err := aes.NewCipher(k.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("keys: new cipher: %w", err)
	}
	return block, nil
}

// Equal reports whether k and other hold the same key material.
func (k *Key) Equal(other *Key) bool {
	if !k.Alive() || !other.Alive() {
		return false
	}
	return k.buf.EqualTo(other.buf.Bytes())
}

// Alive reports whether the key has not been destroyed.
func (k *Key) Alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}

// Destroy zeroes the key. It is safe to call more than once.
func (k *Key) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}
