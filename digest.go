package kawase

import (
	"encoding/json"
	"fmt"

	"github.com/robotomize/kawase/internal/hashio"
	"github.com/robotomize/kawase/provider"
)

// ChangeDetector fingerprints payloads so an unchanged fetch can skip the merge
type ChangeDetector struct {
	hashFunc hashio.HashFunc
}

// NewChangeDetector fails when no hash function is available, that is a configuration error and never
// something to recover from at fetch time
func NewChangeDetector(hashFunc hashio.HashFunc) (*ChangeDetector, error) {
	if hashFunc == nil {
		return nil, fmt.Errorf("change detector: %w", hashio.ErrHashFuncNotFound)
	}

	return &ChangeDetector{hashFunc: hashFunc}, nil
}

// Digest hashes the canonical form of the payload. json.Marshal emits map keys sorted, so two payloads with
// equal content always produce the same digest
func (d *ChangeDetector) Digest(payload provider.Payload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}

	sum, err := hashio.HexSum(d.hashFunc, b)
	if err != nil {
		return "", fmt.Errorf("hex sum: %w", err)
	}

	return sum, nil
}

// Changed reports whether the payload differs from the last stored digest. An empty last digest always
// counts as a change
func (d *ChangeDetector) Changed(payload provider.Payload, last string) (string, bool, error) {
	digest, err := d.Digest(payload)
	if err != nil {
		return "", false, err
	}

	return digest, last == "" || digest != last, nil
}
