package learning

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

const hashSalt = "offer-lines/v1\x00"

// ContentHash is an order-independent 128-bit digest of the offer lines'
// product code, quantity and discount, as 32 hex characters. Two xxhash64
// sums over the same sorted canonical form, one salted, make up the digest.
func ContentHash(lines []erp.OfferLine) string {
	canon := make([]string, len(lines))
	for i, l := range lines {
		canon[i] = l.ProductCode + "|" + l.Quantity.Round(4).String() + "|" + l.DiscountPercent.Round(4).String()
	}
	slices.Sort(canon)

	body := strings.Join(canon, "\n")
	return fmt.Sprintf("%016x%016x", xxhash.Sum64String(body), xxhash.Sum64String(hashSalt+body))
}
