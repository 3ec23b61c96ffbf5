package aggregate

import (
	"fmt"
	"math"

	"github.com/asaidimu/go-ninja/core"
)

// Concat flattens the items of every batch in partition order, tagging each
// item with the partition it came from.
func Concat[P, B, T, R any](batches []Batch[P, B], items func(B) []T, tag func(P, T) R) []R {
	n := 0
	for _, b := range batches {
		n += len(items(b.Data))
	}
	out := make([]R, 0, n)
	for _, b := range batches {
		for _, item := range items(b.Data) {
			out = append(out, tag(b.Partition, item))
		}
	}
	return out
}

// Index maps items by key. When two items share a key the later one wins;
// callers that care about colliding keys across partitions must not rely on
// which one survives.
func Index[T any](items []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, item := range items {
		out[key(item)] = item
	}
	return out
}

// Join pairs each detail with the value sharing its key, in detail order.
// Details without a matching value are dropped.
func Join[D, V, R any](details []D, detailKey func(D) string, values map[string]V, combine func(D, V) (R, error)) ([]R, error) {
	out := make([]R, 0, len(details))
	for _, d := range details {
		v, ok := values[detailKey(d)]
		if !ok {
			continue
		}
		r, err := combine(d, v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Relative divides value by pivot. A zero, NaN or infinite pivot yields an
// error wrapping core.ErrNumericDomain instead of an infinite or NaN result.
func Relative(value, pivot float64) (float64, error) {
	if pivot == 0 || math.IsNaN(pivot) || math.IsInf(pivot, 0) {
		return 0, fmt.Errorf("%w: cannot divide %g by pivot %g", core.ErrNumericDomain, value, pivot)
	}
	return value / pivot, nil
}
