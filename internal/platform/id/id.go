// Package id generates compact, URL-safe identifiers.
//
// Identifiers are random UUIDv4 bytes encoded as 26 lowercase base32
// characters without padding, so they sort and copy cleanly in URLs,
// SQL keys, and log lines.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a new 26-character lowercase identifier.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}
