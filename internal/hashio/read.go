package hashio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

const size = 512

type HashFunc func([]byte) ([]byte, error)

var ErrHashFuncNotFound = errors.New("hash func not found")

// ReadAll reads in blocks by buf size and hashes
func ReadAll(r io.Reader, hasher hash.Hash) ([]byte, error) {
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}

		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, fmt.Errorf("read: %w", err)
		}
	}

	return hasher.Sum(nil), nil
}

func HashSumFunc(hasher func() hash.Hash) HashFunc {
	return func(in []byte) ([]byte, error) {
		if hasher == nil {
			return nil, ErrHashFuncNotFound
		}

		h := hasher()
		if _, err := h.Write(in); err != nil {
			return nil, fmt.Errorf("%T(hash.Hash) write: %w", h, err)
		}

		return h.Sum(nil), nil
	}
}

// HexSum applies hashFunc to in and returns the lowercase hex form
func HexSum(hashFunc HashFunc, in []byte) (string, error) {
	if hashFunc == nil {
		return "", ErrHashFuncNotFound
	}

	sum, err := hashFunc(in)
	if err != nil {
		return "", fmt.Errorf("call HashFunc: %w", err)
	}

	return hex.EncodeToString(sum), nil
}

func SHA256() func() hash.Hash {
	return func() hash.Hash {
		return sha256.New()
	}
}

func SHA256HashFunc() HashFunc {
	return HashSumFunc(SHA256())
}
