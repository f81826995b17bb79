// Package fingerprint derives the stable content hash of a resolved gold row.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"ratelake/internal/core/rates"
)

// Delimiter separates the hashed fields; never expected inside a field
const Delimiter = "||"

// Business computes the SHA-256 digest over
// date || entity_id || product_id || rate, UTF-8, hex-encoded.
// A nil rate renders as the empty string. Provenance fields (ingestion_ts,
// source_file) deliberately do not participate, so value-identical rows
// arriving through different provenance hash the same
func Business(date time.Time, entityID, productID int32, rate *float64) string {
	var b strings.Builder
	b.WriteString(date.UTC().Format(rates.DateLayout))
	b.WriteString(Delimiter)
	b.WriteString(strconv.FormatInt(int64(entityID), 10))
	b.WriteString(Delimiter)
	b.WriteString(strconv.FormatInt(int64(productID), 10))
	b.WriteString(Delimiter)
	if rate != nil {
		b.WriteString(FormatRate(*rate))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// FormatRate renders a rate canonically: shortest representation that
// round-trips the float64, e.g. 4.5 -> "4.5"
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'g', -1, 64)
}
