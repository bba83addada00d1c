// Package auth implements the access control gate: a caller-supplied key
// is checked against the configured set before any session- or
// message-mutating operation proceeds.
package auth

import (
	"crypto/subtle"

	"github.com/piyushkb/WhastapWeb/errors"
)

// Keyring holds the configured API keys.
type Keyring struct {
	keys [][]byte
}

// NewKeyring creates a keyring from the configured keys. At least one
// non-empty key is required; an empty gate would let everything through.
func NewKeyring(keys []string) (*Keyring, error) {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			valid = append(valid, []byte(k))
		}
	}
	if len(valid) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingAPIKey, "Keyring", "NewKeyring", "no API keys configured")
	}
	return &Keyring{keys: valid}, nil
}

// Authorize checks a candidate key against every configured key in
// constant time. The candidate is compared against all keys even after a
// match so timing does not reveal which key matched.
func (k *Keyring) Authorize(candidate string) error {
	if candidate == "" {
		return errors.WrapUnauthorized(errors.ErrMissingAPIKey, "Keyring", "Authorize", "key check")
	}

	cand := []byte(candidate)
	matched := 0
	for _, key := range k.keys {
		if len(key) == len(cand) {
			matched |= subtle.ConstantTimeCompare(key, cand)
		}
	}
	if matched == 1 {
		return nil
	}
	return errors.WrapUnauthorized(errors.ErrInvalidAPIKey, "Keyring", "Authorize", "key check")
}
