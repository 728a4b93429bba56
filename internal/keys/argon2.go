package keys

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Argon2id (RFC 9106, version 0x13) with the secret and associated-data
// inputs that argon2.IDKey does not expose. Lanes are filled in order on the
// calling goroutine; the output does not depend on scheduling.

const (
	argon2Version = 0x13
	argon2idMode  = 2
	blockWords    = 128
	syncPoints    = 4
)

type block [blockWords]uint64

func idKey(password, salt, secret, data []byte, time, memory uint32, lanes uint8, keyLen uint32) []byte {
	threads := uint32(lanes)
	h0 := initHash(password, salt, secret, data, time, memory, threads, keyLen)

	memory = memory / (syncPoints * threads) * (syncPoints * threads)
	if memory < 2*syncPoints*threads {
		memory = 2 * syncPoints * threads
	}
	B := initBlocks(&h0, memory, threads)
	processBlocks(B, time, memory, threads)
	key := extractKey(B, memory, threads, keyLen)
	clear(B)
	clear(h0[:])
	return key
}

func initHash(password, salt, secret, data []byte, time, memory, threads, keyLen uint32) [blake2b.Size + 8]byte {
	var (
		h0     [blake2b.Size + 8]byte
		params [24]byte
		tmp    [4]byte
	)
	b2, _ := blake2b.New512(nil)
	binary.LittleEndian.PutUint32(params[0:4], threads)
	binary.LittleEndian.PutUint32(params[4:8], keyLen)
	binary.LittleEndian.PutUint32(params[8:12], memory)
	binary.LittleEndian.PutUint32(params[12:16], time)
	binary.LittleEndian.PutUint32(params[16:20], argon2Version)
	binary.LittleEndian.PutUint32(params[20:24], argon2idMode)
	b2.Write(params[:])
	for _, field := range [][]byte{password, salt, secret, data} {
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(field)))
		b2.Write(tmp[:])
		b2.Write(field)
	}
	b2.Sum(h0[:0])
	return h0
}

func initBlocks(h0 *[blake2b.Size + 8]byte, memory, threads uint32) []block {
	var block0 [1024]byte
	B := make([]block, memory)
	for lane := uint32(0); lane < threads; lane++ {
		j := lane * (memory / threads)
		binary.LittleEndian.PutUint32(h0[blake2b.Size+4:], lane)
		for k := uint32(0); k < 2; k++ {
			binary.LittleEndian.PutUint32(h0[blake2b.Size:], k)
			blake2bHash(block0[:], h0[:])
			for i := range B[j+k] {
				B[j+k][i] = binary.LittleEndian.Uint64(block0[i*8:])
			}
		}
	}
	clear(block0[:])
	return B
}

func processBlocks(B []block, time, memory, threads uint32) {
	laneLen := memory / threads
	segLen := laneLen / syncPoints

	for n := uint32(0); n < time; n++ {
		for slice := uint32(0); slice < syncPoints; slice++ {
			for lane := uint32(0); lane < threads; lane++ {
				processSegment(B, n, slice, lane, time, memory, threads, laneLen, segLen)
			}
		}
	}
}

func processSegment(B []block, n, slice, lane, time, memory, threads, laneLen, segLen uint32) {
	var addresses, in, zero block
	// Argon2id is data-independent for the first half of the first pass.
	dataIndependent := n == 0 && slice < syncPoints/2
	if dataIndependent {
		in[0] = uint64(n)
		in[1] = uint64(lane)
		in[2] = uint64(slice)
		in[3] = uint64(memory)
		in[4] = uint64(time)
		in[5] = uint64(argon2idMode)
	}

	index := uint32(0)
	if n == 0 && slice == 0 {
		index = 2
		if dataIndependent {
			in[6]++
			processBlock(&addresses, &in, &zero, false)
			processBlock(&addresses, &addresses, &zero, false)
		}
	}

	offset := lane*laneLen + slice*segLen + index
	for index < segLen {
		prev := offset - 1
		if index == 0 && slice == 0 {
			prev += laneLen
		}
		var random uint64
		if dataIndependent {
			if index%blockWords == 0 {
				in[6]++
				processBlock(&addresses, &in, &zero, false)
				processBlock(&addresses, &addresses, &zero, false)
			}
			random = addresses[index%blockWords]
		} else {
			random = B[prev][0]
		}
		ref := indexAlpha(random, laneLen, segLen, threads, n, slice, lane, index)
		processBlock(&B[offset], &B[prev], &B[ref], true)
		index, offset = index+1, offset+1
	}
}

func indexAlpha(rand uint64, laneLen, segLen, threads, n, slice, lane, index uint32) uint32 {
	refLane := uint32(rand>>32) % threads
	if n == 0 && slice == 0 {
		refLane = lane
	}
	m, s := 3*segLen, ((slice+1)%syncPoints)*segLen
	if lane == refLane {
		m += index
	}
	if n == 0 {
		m, s = slice*segLen, 0
		if slice == 0 || lane == refLane {
			m += index
		}
	}
	if index == 0 || lane == refLane {
		m--
	}
	return phi(rand, uint64(m), uint64(s), refLane, laneLen)
}

func phi(rand, m, s uint64, lane, laneLen uint32) uint32 {
	p := rand & 0xFFFFFFFF
	p = (p * p) >> 32
	p = (p * m) >> 32
	return lane*laneLen + uint32((s+m-(p+1))%uint64(laneLen))
}

func extractKey(B []block, memory, threads, keyLen uint32) []byte {
	laneLen := memory / threads
	for lane := uint32(0); lane < threads-1; lane++ {
		for i, v := range B[lane*laneLen+laneLen-1] {
			B[memory-1][i] ^= v
		}
	}

	var last [1024]byte
	for i, v := range B[memory-1] {
		binary.LittleEndian.PutUint64(last[i*8:], v)
	}
	key := make([]byte, keyLen)
	blake2bHash(key, last[:])
	clear(last[:])
	return key
}

// blake2bHash is the variable-length hash H' of RFC 9106 section 3.3.
func blake2bHash(out, in []byte) {
	var b2 hash.Hash
	if n := len(out); n < blake2b.Size {
		b2, _ = blake2b.New(n, nil)
	} else {
		b2, _ = blake2b.New512(nil)
	}

	var buffer [blake2b.Size]byte
	binary.LittleEndian.PutUint32(buffer[:4], uint32(len(out)))
	b2.Write(buffer[:4])
	b2.Write(in)

	if len(out) <= blake2b.Size {
		b2.Sum(out[:0])
		return
	}

	outLen := len(out)
	b2.Sum(buffer[:0])
	b2.Reset()
	copy(out, buffer[:32])
	out = out[32:]
	for len(out) > blake2b.Size {
		b2.Write(buffer[:])
		b2.Sum(buffer[:0])
		copy(out, buffer[:32])
		out = out[32:]
		b2.Reset()
	}

	if outLen%blake2b.Size > 0 {
		r := ((outLen + 31) / 32) - 2
		b2, _ = blake2b.New(outLen-32*r, nil)
	}
	b2.Write(buffer[:])
	b2.Sum(out[:0])
}

// processBlock computes the compression G(in1, in2) into out, XORing into
// the existing contents when xor is set.
func processBlock(out, in1, in2 *block, xor bool) {
	var t block
	for i := range t {
		t[i] = in1[i] ^ in2[i]
	}
	var v [16]uint64
	// rows
	for i := 0; i < blockWords; i += 16 {
		copy(v[:], t[i:i+16])
		blamka(&v)
		copy(t[i:i+16], v[:])
	}
	// columns
	for i := 0; i < 16; i += 2 {
		for k := 0; k < 8; k++ {
			v[2*k] = t[16*k+i]
			v[2*k+1] = t[16*k+i+1]
		}
		blamka(&v)
		for k := 0; k < 8; k++ {
			t[16*k+i] = v[2*k]
			t[16*k+i+1] = v[2*k+1]
		}
	}
	if xor {
		for i := range t {
			out[i] ^= in1[i] ^ in2[i] ^ t[i]
		}
	} else {
		for i := range t {
			out[i] = in1[i] ^ in2[i] ^ t[i]
		}
	}
}

// blamka is one BLAKE2b round with the multiplication-hardened G.
func blamka(v *[16]uint64) {
	gb(v, 0, 4, 8, 12)
	gb(v, 1, 5, 9, 13)
	gb(v, 2, 6, 10, 14)
	gb(v, 3, 7, 11, 15)
	gb(v, 0, 5, 10, 15)
	gb(v, 1, 6, 11, 12)
	gb(v, 2, 7, 8, 13)
	gb(v, 3, 4, 9, 14)
}

func gb(v *[16]uint64, a, b, c, d int) {
	v[a] += v[b] + 2*uint64(uint32(v[a]))*uint64(uint32(v[b]))
	v[d] ^= v[a]
	v[d] = v[d]>>32 | v[d]<<32
	v[c] += v[d] + 2*uint64(uint32(v[c]))*uint64(uint32(v[d]))
	v[b] ^= v[c]
	v[b] = v[b]>>24 | v[b]<<40
	v[a] += v[b] + 2*uint64(uint32(v[a]))*uint64(uint32(v[b]))
	v[d] ^= v[a]
	v[d] = v[d]>>16 | v[d]<<48
	v[c] += v[d] + 2*uint64(uint32(v[c]))*uint64(uint32(v[d]))
	v[b] ^= v[c]
	v[b] = v[b]<<1 | v[b]>>63
}
