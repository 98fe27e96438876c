package learning

import (
	"cmp"
	"slices"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
)

// Kind classifies one difference between the generated and current offer.
type Kind string

const (
	KindSwap           Kind = "swap"
	KindQuantityChange Kind = "quantity_change"
	KindAddition       Kind = "addition"
	KindDeletion       Kind = "deletion"
)

// Difference is one changed line. Original is nil for additions and
// Current is nil for deletions.
type Difference struct {
	Kind     Kind
	Original *requests.Line
	Current  *erp.OfferLine
}

// Diff compares the generated lines with the offer's current lines. Lines
// keeping their product code pair up first; of those, any with a changed
// quantity or discount is a quantity change. The remaining lines pair by
// position order, each pair being a swap, and whatever is left over is an
// addition or a deletion.
func Diff(original []requests.Line, current []erp.OfferLine) []Difference {
	orig := slices.Clone(original)
	curr := slices.Clone(current)
	slices.SortStableFunc(orig, func(a, b requests.Line) int { return cmp.Compare(a.Position, b.Position) })
	slices.SortStableFunc(curr, func(a, b erp.OfferLine) int { return cmp.Compare(a.Position, b.Position) })

	usedOrig := make([]bool, len(orig))
	usedCurr := make([]bool, len(curr))
	var diffs []Difference

	for i := range orig {
		for j := range curr {
			if usedCurr[j] || curr[j].ProductCode != orig[i].ProductCode {
				continue
			}
			usedOrig[i], usedCurr[j] = true, true
			if !curr[j].Quantity.Equal(orig[i].Quantity) || !curr[j].DiscountPercent.Equal(orig[i].DiscountPercent) {
				diffs = append(diffs, Difference{Kind: KindQuantityChange, Original: &orig[i], Current: &curr[j]})
			}
			break
		}
	}

	var restOrig []int
	for i, used := range usedOrig {
		if !used {
			restOrig = append(restOrig, i)
		}
	}
	var restCurr []int
	for j, used := range usedCurr {
		if !used {
			restCurr = append(restCurr, j)
		}
	}

	n := min(len(restOrig), len(restCurr))
	for k := range n {
		diffs = append(diffs, Difference{Kind: KindSwap, Original: &orig[restOrig[k]], Current: &curr[restCurr[k]]})
	}
	for _, i := range restOrig[n:] {
		diffs = append(diffs, Difference{Kind: KindDeletion, Original: &orig[i]})
	}
	for _, j := range restCurr[n:] {
		diffs = append(diffs, Difference{Kind: KindAddition, Current: &curr[j]})
	}
	return diffs
}
