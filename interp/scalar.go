package interp

import (
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/gogpu/vecir/ir"
)

func widthMask(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func signExtend(bits uint64, width uint8) int64 {
	if width >= 64 {
		return int64(bits)
	}
	shift := 64 - uint(width)
	return int64(bits<<shift) >> shift
}

func floatFromBits(bits uint64, st ir.ScalarType) float64 {
	switch st.Width {
	case 16:
		return float64(float16.Frombits(uint16(bits)).Float32())
	case 32:
		return float64(math.Float32frombits(uint32(bits)))
	default:
		return math.Float64frombits(bits)
	}
}

func floatToBits(f float64, st ir.ScalarType) uint64 {
	switch st.Width {
	case 16:
		return uint64(float16.Fromfloat32(float32(f)).Bits())
	case 32:
		return uint64(math.Float32bits(float32(f)))
	default:
		return math.Float64bits(f)
	}
}

// combine applies a combining kind to two scalars of the given type.
func combine(kind ir.CombiningKind, a, b uint64, st ir.ScalarType) (uint64, error) {
	if st.Kind == ir.ScalarFloat {
		x, y := floatFromBits(a, st), floatFromBits(b, st)
		var z float64
		switch kind {
		case ir.CombiningAdd:
			z = x + y
		case ir.CombiningMul:
			z = x * y
		case ir.CombiningMin:
			z = math.Min(x, y)
		case ir.CombiningMax:
			z = math.Max(x, y)
		default:
			return 0, fmt.Errorf("interp: %s over float elements", kind)
		}
		return floatToBits(z, st), nil
	}

	x, y := signExtend(a, st.Width), signExtend(b, st.Width)
	var z int64
	switch kind {
	case ir.CombiningAdd:
		z = x + y
	case ir.CombiningMul:
		z = x * y
	case ir.CombiningMin:
		z = x
		if y < x {
			z = y
		}
	case ir.CombiningMax:
		z = x
		if y > x {
			z = y
		}
	case ir.CombiningAnd:
		z = x & y
	case ir.CombiningOr:
		z = x | y
	case ir.CombiningXor:
		z = x ^ y
	default:
		return 0, fmt.Errorf("interp: unknown combining kind %s", kind)
	}
	return uint64(z) & widthMask(st.Width), nil
}
