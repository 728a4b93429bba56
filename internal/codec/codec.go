// Package codec implements the journal's fixed-block file encryption.
//
// Every 16-byte block is encrypted independently with the same key: no IV,
// no chaining, no authentication tag. The plaintext length is recovered from
// zero padding on the final block, which is always present: an exact
// multiple of the block size gets an extra all-zero block.
//
// The padding is ambiguous. Decrypt strips every trailing zero byte of the
// final block, so plaintext that really ends in zero bytes loses them. The
// rule is kept as is because changing it would change the file format.
package codec

import (
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/starford/vellum/internal/apperr"
)

// BlockSize is the cipher block width in bytes.
const BlockSize = 16

// Codec encrypts and decrypts streams with a single block cipher.
type Codec struct {
	block cipher.Block
}

// New returns a Codec over block, which must have a 16-byte block size.
func New(block cipher.Block) (*Codec, error) {
	if block.BlockSize() != BlockSize {
		return nil, fmt.Errorf("codec: block size %d, want %d", block.BlockSize(), BlockSize)
	}
	return &Codec{block: block}, nil
}

// Encrypt reads plaintext from src until EOF and writes ciphertext to dst.
func (c *Codec) Encrypt(dst io.Writer, src io.Reader) error {
	var buf [BlockSize]byte
	for {
		n, err := io.ReadFull(src, buf[:])
		switch {
		case err == nil:
			if err := c.writeBlock(dst, &buf); err != nil {
				return err
			}
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			// Final block: n content bytes (possibly zero) then zero padding.
			clear(buf[n:])
			return c.writeBlock(dst, &buf)
		default:
			return fmt.Errorf("codec: read plaintext: %w", err)
		}
	}
}

func (c *Codec) writeBlock(dst io.Writer, buf *[BlockSize]byte) error {
	c.block.Encrypt(buf[:], buf[:])
	if _, err := dst.Write(buf[:]); err != nil {
		return fmt.Errorf("codec: write ciphertext: %w", err)
	}
	return nil
}

// Decrypt reads ciphertext from src until EOF and writes plaintext to dst.
// A stream that is empty or not a multiple of BlockSize yields
// apperr.ErrCorrupt. Output already written before the error is detected is
// not retracted.
func (c *Codec) Decrypt(dst io.Writer, src io.Reader) error {
	var cur, next [BlockSize]byte

	if err := readBlock(src, &cur); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("codec: empty ciphertext: %w", apperr.ErrCorrupt)
		}
		return err
	}

	for {
		err := readBlock(src, &next)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		c.block.Decrypt(cur[:], cur[:])
		if _, err := dst.Write(cur[:]); err != nil {
			return fmt.Errorf("codec: write plaintext: %w", err)
		}
		cur = next
	}

	c.block.Decrypt(cur[:], cur[:])
	if _, err := dst.Write(cur[:TrimPadding(cur[:])]); err != nil {
		return fmt.Errorf("codec: write plaintext: %w", err)
	}
	return nil
}

// readBlock fills buf. It returns io.EOF only when no byte was read.
func readBlock(src io.Reader, buf *[BlockSize]byte) error {
	_, err := io.ReadFull(src, buf[:])
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("codec: partial block: %w", apperr.ErrCorrupt)
	default:
		return fmt.Errorf("codec: read ciphertext: %w", err)
	}
}

// TrimPadding returns the length of block without its trailing zero bytes.
func TrimPadding(block []byte) int {
	n := len(block)
	for n > 0 && block[n-1] == 0 {
		n--
	}
	return n
}
