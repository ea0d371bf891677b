package tfidf

import (
	"math"

	"github.com/hyperjump/shinbun/pkg/utils"
)

// Vector is a sparse weighted term vector. Indices are vocabulary indices in
// ascending order; Weights[i] belongs to Indices[i].
type Vector struct {
	Indices []int
	Weights []float64
}

// Len returns the number of non-zero components.
func (v Vector) Len() int { return len(v.Indices) }

// IsZero reports whether the vector has no non-zero component.
func (v Vector) IsZero() bool {
	for _, w := range v.Weights {
		if w != 0 {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v.Weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product, walking both index lists in order so the
// summation order (and therefore the result) is deterministic.
func (v Vector) Dot(o Vector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			dot += v.Weights[i] * o.Weights[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot
}

// Weight returns the weight for a vocabulary index, or 0.
func (v Vector) Weight(index int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == index:
			return v.Weights[mid]
		case v.Indices[mid] < index:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// normalize scales the weights to unit L2 norm; a zero vector is left unchanged.
func (v Vector) normalize() {
	utils.NormalizeL2(v.Weights)
}
