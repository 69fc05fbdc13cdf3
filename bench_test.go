package vecir

import (
	"runtime"
	"testing"

	"github.com/gogpu/vecir/transform"
)

// ---------------------------------------------------------------------------
// Kernel sources at different complexity levels
// ---------------------------------------------------------------------------

// kernelSmallDot is a minimal 1-D dot product.
const kernelSmallDot = `func @dot(%arg0: vector<8xf32>, %arg1: vector<8xf32>, %arg2: f32) -> f32 {
  %0 = contract %arg0, %arg1, %arg2 {kind = add, lhs_contract = [0], rhs_contract = [0]} : (vector<8xf32>, vector<8xf32>, f32) -> f32
  return %0 : (f32)
}
`

// kernelMediumMatmul is a 2-D contraction with a transposed operand.
const kernelMediumMatmul = `func @matmul(%arg0: vector<4x4xf32>, %arg1: vector<4x4xf32>, %arg2: vector<4x4xf32>) -> vector<4x4xf32> {
  %0 = transpose %arg1 {permutation = [1, 0]} : (vector<4x4xf32>) -> vector<4x4xf32>
  %1 = contract %arg0, %0, %arg2 {kind = add, lhs_contract = [1], rhs_contract = [1]} : (vector<4x4xf32>, vector<4x4xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  return %1 : (vector<4x4xf32>)
}
`

// kernelLargeTiled reads operands from memory, contracts, and writes
// the tiled result back.
const kernelLargeTiled = `func @tiled(%arg0: memref<8x8xf32>, %arg1: memref<8x8xf32>, %arg2: memref<8x8xf32>) {
  %0 = constant {value = 0} : () -> i64
  %1 = constant {value = 0.0} : () -> f32
  %2 = transfer_read %arg0, %0, %0, %1 {permutation = [0, 1]} : (memref<8x8xf32>, i64, i64, f32) -> vector<8x8xf32>
  %3 = transfer_read %arg1, %0, %0, %1 {permutation = [0, 1]} : (memref<8x8xf32>, i64, i64, f32) -> vector<8x8xf32>
  %4 = transfer_read %arg2, %0, %0, %1 {permutation = [0, 1]} : (memref<8x8xf32>, i64, i64, f32) -> vector<8x8xf32>
  %5 = contract %2, %3, %4 {kind = add, lhs_contract = [1], rhs_contract = [0]} : (vector<8x8xf32>, vector<8x8xf32>, vector<8x8xf32>) -> vector<8x8xf32>
  transfer_write %5, %arg2, %0, %0 {permutation = [0, 1]} : (vector<8x8xf32>, memref<8x8xf32>, i64, i64)
  return : ()
}
`

type kernelCase struct {
	name   string
	source string
}

var kernelsByComplexity = []kernelCase{
	{"small_dot", kernelSmallDot},
	{"medium_matmul", kernelMediumMatmul},
	{"large_tiled", kernelLargeTiled},
}

// ---------------------------------------------------------------------------
// End-to-end lowering benchmarks by kernel complexity
// ---------------------------------------------------------------------------

// BenchmarkLowerSource benchmarks the full parse-lower-print pipeline
// grouped by kernel complexity. Reports allocations and throughput.
func BenchmarkLowerSource(b *testing.B) {
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(kc.source)))
			b.ResetTimer()

			var result string
			for i := 0; i < b.N; i++ {
				var err error
				result, err = LowerSource(kc.source, DefaultOptions())
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}

// BenchmarkLowerStrategies benchmarks the same contraction lowered
// under each strategy for cross-strategy comparison.
func BenchmarkLowerStrategies(b *testing.B) {
	strategies := []transform.ContractLowering{
		transform.ContractDot,
		transform.ContractMatmul,
		transform.ContractOuterProduct,
	}
	for _, strategy := range strategies {
		b.Run(strategy.String(), func(b *testing.B) {
			opts := DefaultOptions()
			opts.Transform = opts.Transform.WithContractLowering(strategy)

			b.ReportAllocs()
			b.SetBytes(int64(len(kernelMediumMatmul)))
			b.ResetTimer()

			var result string
			for i := 0; i < b.N; i++ {
				var err error
				result, err = LowerSource(kernelMediumMatmul, opts)
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}
			}
			runtime.KeepAlive(result)
		})
	}
}

// ---------------------------------------------------------------------------
// Individual pipeline stage benchmarks (parse, canonicalize, print)
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks parsing and validation for kernels of
// different complexity.
func BenchmarkParse(b *testing.B) {
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(kc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				module, err := Parse(kc.source)
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				runtime.KeepAlive(module)
			}
		})
	}
}

// BenchmarkCanonicalize benchmarks the canonicalization pass alone.
// Each iteration reparses so the pass always starts from the same IR.
func BenchmarkCanonicalize(b *testing.B) {
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				module, err := Parse(kc.source)
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				Canonicalize(module)
				runtime.KeepAlive(module)
			}
		})
	}
}

// BenchmarkPrint benchmarks rendering lowered modules back to text.
func BenchmarkPrint(b *testing.B) {
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			module, err := Parse(kc.source)
			if err != nil {
				b.Fatalf("parse failed: %v", err)
			}
			if err := Lower(module, DefaultOptions()); err != nil {
				b.Fatalf("lower failed: %v", err)
			}

			b.ReportAllocs()
			b.ResetTimer()

			var result string
			for i := 0; i < b.N; i++ {
				result = Print(module)
			}
			runtime.KeepAlive(result)
		})
	}
}
