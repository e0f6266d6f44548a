// Package idgen generates random, prefixed identifiers for attempts and
// reports.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Prefixes for the identifiers the service issues.
const (
	AttemptPrefix = "att_"
	ReportPrefix  = "rpt_"
)

const randomBytes = 12

// WithPrefix returns prefix followed by 24 random hex chars.
func WithPrefix(prefix string) string {
	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// Attempt returns a new attempt ID.
func Attempt() string { return WithPrefix(AttemptPrefix) }

// Report returns a new report ID.
func Report() string { return WithPrefix(ReportPrefix) }

// HasShape reports whether id looks like something WithPrefix(prefix) made.
// Handlers use it to reject garbage before touching storage.
func HasShape(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok || len(rest) != randomBytes*2 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}
