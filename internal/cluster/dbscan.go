package cluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Noise is the DBSCAN label for points outside every cluster.
const Noise = -1

// DBSCAN labels points by density under cosine distance. A point is core
// when at least minSamples points (itself included) lie within eps.
// Clusters are numbered from 0 in the order their first core point is
// scanned; border points join the first cluster that reaches them.
func DBSCAN(points [][]float32, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	dist := CosineDistances(points)
	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if dist.At(i, j) <= eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}
	core := func(i int) bool { return len(neighbors[i]) >= minSamples }

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core(i) {
			continue
		}
		labels[i] = next
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] != Noise {
				continue
			}
			labels[p] = next
			if core(p) {
				queue = append(queue, neighbors[p]...)
			}
		}
		next++
	}
	return labels
}

// CosineDistances returns the symmetric n×n matrix of 1 - cos(a, b),
// computed as one Gram product over L2-normalized rows. Zero vectors are
// at distance 1 from everything but themselves. n must be positive.
func CosineDistances(points [][]float32) *mat.SymDense {
	n := len(points)
	dim := 0
	for _, p := range points {
		if len(p) > dim {
			dim = len(p)
		}
	}
	if dim == 0 {
		out := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out.SetSym(i, j, 1)
			}
		}
		return out
	}

	x := mat.NewDense(n, dim, nil)
	for i, p := range points {
		var norm float64
		for _, v := range p {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for j, v := range p {
			x.Set(i, j, float64(v)/norm)
		}
	}

	var gram mat.SymDense
	gram.SymOuterK(1, x)

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := 1 - gram.At(i, j)
			if i == j {
				d = 0
			}
			out.SetSym(i, j, math.Max(d, 0))
		}
	}
	return out
}
