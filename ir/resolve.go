package ir

import "fmt"

// This file resolves result shapes and types from operation parameters.
// The builder uses it to type new operations and the verifier to check
// parsed or rewritten ones.

// ExtractResultType returns the type produced by extracting n leading
// dimensions from src: a smaller vector, or the element scalar when all
// dimensions are consumed.
func ExtractResultType(src VectorType, n int) TypeInner {
	if n >= src.Rank() {
		return src.Elem
	}
	return VectorType{Shape: src.Shape[n:], Elem: src.Elem}
}

// StridedSliceResultType returns the type produced by a strided slice of
// the leading dimensions: the slice sizes followed by the untouched
// trailing dimensions.
func StridedSliceResultType(src VectorType, sizes []int64) VectorType {
	shape := make([]int64, 0, src.Rank())
	shape = append(shape, sizes...)
	shape = append(shape, src.Shape[len(sizes):]...)
	return VectorType{Shape: shape, Elem: src.Elem}
}

// BroadcastCompatible reports whether a value of type src can broadcast
// to dst: src's shape must match a suffix of dst's shape, dimension by
// dimension, allowing stretched unit dimensions.
func BroadcastCompatible(src TypeInner, dst VectorType) bool {
	switch src := src.(type) {
	case ScalarType:
		return src == dst.Elem
	case VectorType:
		if src.Elem != dst.Elem || src.Rank() > dst.Rank() {
			return false
		}
		tail := dst.Shape[dst.Rank()-src.Rank():]
		for i, d := range src.Shape {
			if d != tail[i] && d != 1 {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// BitCastResultShape returns the shape of a bitcast from src to the
// given element type. The minor dimension scales by the width ratio.
func BitCastResultShape(src VectorType, elem ScalarType) ([]int64, error) {
	if src.Rank() == 0 {
		return nil, fmt.Errorf("ir: bitcast requires a ranked vector")
	}
	minor := src.Shape[src.Rank()-1] * int64(src.Elem.Width)
	if minor%int64(elem.Width) != 0 {
		return nil, fmt.Errorf("ir: bitcast of %s to %s does not preserve the minor dimension",
			TypeString(src), elem)
	}
	shape := make([]int64, src.Rank())
	copy(shape, src.Shape)
	shape[src.Rank()-1] = minor / int64(elem.Width)
	return shape, nil
}

// ---------------------------------------------------------------------------
// Slice tiling
// ---------------------------------------------------------------------------

// TileCounts returns the number of tiles along each dimension when a
// shape is tiled with the given sizes (boundary tiles clipped).
func TileCounts(shape, sizes []int64) []int64 {
	counts := make([]int64, len(shape))
	for i, d := range shape {
		counts[i] = (d + sizes[i] - 1) / sizes[i]
	}
	return counts
}

// NumTiles returns the total tile count of a tile grid.
func NumTiles(counts []int64) int64 {
	n := int64(1)
	for _, c := range counts {
		n *= c
	}
	return n
}

// TileCoords delinearizes a row-major tile index into grid coordinates.
func TileCoords(counts []int64, index int64) []int64 {
	coords := make([]int64, len(counts))
	for i := len(counts) - 1; i >= 0; i-- {
		coords[i] = index % counts[i]
		index /= counts[i]
	}
	return coords
}

// TileOffsets returns the element offsets of a tile at the given grid
// coordinates.
func TileOffsets(sizes, coords []int64) []int64 {
	offsets := make([]int64, len(coords))
	for i := range coords {
		offsets[i] = coords[i] * sizes[i]
	}
	return offsets
}

// TileShape returns the (possibly clipped) shape of the tile at the
// given grid coordinates.
func TileShape(shape, sizes, coords []int64) []int64 {
	tile := make([]int64, len(shape))
	for i := range shape {
		tile[i] = sizes[i]
		if rem := shape[i] - coords[i]*sizes[i]; rem < tile[i] {
			tile[i] = rem
		}
	}
	return tile
}

// SlicesTupleType returns the tuple type produced by extract_slices over
// src with the given tile sizes.
func SlicesTupleType(ctx *Context, src VectorType, sizes []int64) TupleType {
	counts := TileCounts(src.Shape, sizes)
	n := NumTiles(counts)
	elems := make([]TypeInner, n)
	for i := int64(0); i < n; i++ {
		coords := TileCoords(counts, i)
		elems[i] = ctx.VectorOf(TileShape(src.Shape, sizes, coords), src.Elem)
	}
	return ctx.TupleOf(elems)
}

// ---------------------------------------------------------------------------
// Contraction
// ---------------------------------------------------------------------------

// ContractShapes carries the resolved dimension structure of a contract
// operation.
type ContractShapes struct {
	Batch   []int64 // batch dimension sizes
	LHSFree []int64 // lhs dims that are neither batch nor contracted
	RHSFree []int64 // rhs dims that are neither batch nor contracted
	Result  []int64 // batch ++ lhs free sizes ++ rhs free sizes
}

// ResolveContract computes the result structure of a contraction, or an
// error when the axis lists are inconsistent with the operand shapes.
func ResolveContract(c Contract, lhs, rhs VectorType) (ContractShapes, error) {
	if len(c.LHSBatch) != len(c.RHSBatch) {
		return ContractShapes{}, fmt.Errorf("ir: contract batch axis lists differ in length")
	}
	if len(c.LHSContract) != len(c.RHSContract) {
		return ContractShapes{}, fmt.Errorf("ir: contract contracting axis lists differ in length")
	}

	var shapes ContractShapes
	for i := range c.LHSBatch {
		ld, err := dimAt(lhs, c.LHSBatch[i])
		if err != nil {
			return ContractShapes{}, err
		}
		rd, err := dimAt(rhs, c.RHSBatch[i])
		if err != nil {
			return ContractShapes{}, err
		}
		if ld != rd {
			return ContractShapes{}, fmt.Errorf("ir: contract batch dimension mismatch: %d vs %d", ld, rd)
		}
		shapes.Batch = append(shapes.Batch, ld)
	}
	for i := range c.LHSContract {
		ld, err := dimAt(lhs, c.LHSContract[i])
		if err != nil {
			return ContractShapes{}, err
		}
		rd, err := dimAt(rhs, c.RHSContract[i])
		if err != nil {
			return ContractShapes{}, err
		}
		if ld != rd {
			return ContractShapes{}, fmt.Errorf("ir: contract contracted dimension mismatch: %d vs %d", ld, rd)
		}
	}

	for d := 0; d < lhs.Rank(); d++ {
		if !containsDim(c.LHSBatch, int64(d)) && !containsDim(c.LHSContract, int64(d)) {
			shapes.LHSFree = append(shapes.LHSFree, lhs.Shape[d])
		}
	}
	for d := 0; d < rhs.Rank(); d++ {
		if !containsDim(c.RHSBatch, int64(d)) && !containsDim(c.RHSContract, int64(d)) {
			shapes.RHSFree = append(shapes.RHSFree, rhs.Shape[d])
		}
	}

	shapes.Result = append(shapes.Result, shapes.Batch...)
	shapes.Result = append(shapes.Result, shapes.LHSFree...)
	shapes.Result = append(shapes.Result, shapes.RHSFree...)
	return shapes, nil
}

func dimAt(v VectorType, d int64) (int64, error) {
	if d < 0 || d >= int64(v.Rank()) {
		return 0, fmt.Errorf("ir: contract axis %d out of range for %s", d, TypeString(v))
	}
	return v.Shape[d], nil
}

func containsDim(dims []int64, d int64) bool {
	for _, x := range dims {
		if x == d {
			return true
		}
	}
	return false
}
