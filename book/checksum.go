package book

import (
	"hash/crc32"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bookflow/models"
)

// checksum flattens the top 25 levels of each side into the venue's
// canonical sequence and CRC-32s it: for each rank the bid price, bid
// amount, ask price and ask amount, 100 values in total, formatted and
// joined with ":".
func checksum(bids, asks []models.PriceLevel) uint32 {
	return crc32.ChecksumIEEE([]byte(canonicalString(bids, asks)))
}

func canonicalString(bids, asks []models.PriceLevel) string {
	parts := make([]string, 0, 4*VerificationDepth)
	for i := 0; i < VerificationDepth; i++ {
		bid, ask := bids[i], asks[i]
		parts = append(parts,
			formatChecksumValue(bid.Price),
			formatChecksumValue(bid.Amount),
			formatChecksumValue(ask.Price),
			formatChecksumValue(ask.Amount),
		)
	}
	return strings.Join(parts, ":")
}

// formatChecksumValue renders one numeric value the way the venue's own
// checksum does: plain fixed-point notation when the base-10 exponent is at
// least -6, otherwise scientific notation with the exponent's leading zero
// stripped ("1e-7", not "1e-07"). Fixed-point output uses the shortest
// digit string that round-trips the value, with a ".0" suffix kept for
// integral values whose wire text carried fractional digits.
func formatChecksumValue(d decimal.Decimal) string {
	f, _ := d.Float64()
	if math.Floor(math.Log10(math.Abs(f))) >= -6 {
		if d.IsInteger() {
			if d.Exponent() >= 0 {
				return d.String()
			}
			return strconv.FormatFloat(f, 'f', -1, 64) + ".0"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Replace(strconv.FormatFloat(f, 'e', -1, 64), "e-0", "e-", 1)
}
