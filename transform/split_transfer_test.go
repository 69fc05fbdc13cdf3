package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/vecir/interp"
	"github.com/gogpu/vecir/ir"
)

const splitReadSource = `func @sr(%arg0: memref<4x4xf32>) -> vector<2x2xf32> {
  %0 = constant {value = 0} : () -> i64
  %1 = constant {value = 0.0} : () -> f32
  %2 = transfer_read %arg0, %0, %0, %1 {permutation = [0, 1]} : (memref<4x4xf32>, i64, i64, f32) -> vector<4x4xf32>
  %3 = extract_strided_slice %2 {offsets = [0, 0], sizes = [2, 2], strides = [1, 1]} : (vector<4x4xf32>) -> vector<2x2xf32>
  %4 = extract_strided_slice %2 {offsets = [2, 2], sizes = [2, 2], strides = [1, 1]} : (vector<4x4xf32>) -> vector<2x2xf32>
  %5 = elementwise %3, %4 {kind = add} : (vector<2x2xf32>, vector<2x2xf32>) -> vector<2x2xf32>
  return %5 : (vector<2x2xf32>)
}
`

func iotaBuffer(shape []int64) *interp.Buffer {
	buf := interp.NewBuffer(shape, ir.F32)
	n := int64(len(buf.Bits))
	for i := int64(0); i < n; i++ {
		var coord []int64
		rem := i
		for d := len(shape) - 1; d >= 0; d-- {
			coord = append([]int64{rem % shape[d]}, coord...)
			rem /= shape[d]
		}
		buf.SetFloat(float64(i), coord...)
	}
	return buf
}

func TestSplitTransferRead(t *testing.T) {
	module, fn := parseFunc(t, splitReadSource)
	require.True(t, applyAndValidate(t, module, fn, SplitTransferPatterns(module.Context, nil)))

	// The wide read is gone; each slice reads its own tile.
	assert.Equal(t, 0, numOps[ir.ExtractStridedSlice](fn))
	assert.Equal(t, 2, numOps[ir.TransferRead](fn))
	for _, op := range fn.Ops {
		if _, ok := op.Inner.(ir.TransferRead); ok {
			vt, _ := op.VectorType()
			assert.Equal(t, []int64{2, 2}, vt.Shape)
		}
	}

	_, reference := parseFunc(t, splitReadSource)
	want, err := interp.Run(reference, []interp.Value{interp.BufferValue(iotaBuffer([]int64{4, 4}))})
	require.NoError(t, err)
	got, err := interp.Run(fn, []interp.Value{interp.BufferValue(iotaBuffer([]int64{4, 4}))})
	require.NoError(t, err)
	assert.Equal(t, want.Bits, got.Bits)
}

const splitWriteSource = `func @sw(%arg0: vector<2x2xf32>, %arg1: vector<2x2xf32>, %arg2: vector<2x2xf32>, %arg3: vector<2x2xf32>, %arg4: vector<4x4xf32>, %arg5: memref<4x4xf32>) {
  %0 = constant {value = 0} : () -> i64
  %1 = insert_strided_slice %arg0, %arg4 {offsets = [0, 0], strides = [1, 1]} : (vector<2x2xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  %2 = insert_strided_slice %arg1, %1 {offsets = [0, 2], strides = [1, 1]} : (vector<2x2xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  %3 = insert_strided_slice %arg2, %2 {offsets = [2, 0], strides = [1, 1]} : (vector<2x2xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  %4 = insert_strided_slice %arg3, %3 {offsets = [2, 2], strides = [1, 1]} : (vector<2x2xf32>, vector<4x4xf32>) -> vector<4x4xf32>
  transfer_write %4, %arg5, %0, %0 {permutation = [0, 1]} : (vector<4x4xf32>, memref<4x4xf32>, i64, i64)
  return : ()
}
`

func splitWriteArgs(dst *interp.Buffer) []interp.Value {
	tile := func(base float64) interp.Value {
		vt := ir.VectorType{Shape: []int64{2, 2}, Elem: ir.F32}
		return interp.FloatVector(vt, base, base+1, base+2, base+3)
	}
	seed := make([]float64, 16)
	for i := range seed {
		seed[i] = -1
	}
	return []interp.Value{
		tile(10), tile(20), tile(30), tile(40),
		interp.FloatVector(ir.VectorType{Shape: []int64{4, 4}, Elem: ir.F32}, seed...),
		interp.BufferValue(dst),
	}
}

func TestSplitTransferWrite(t *testing.T) {
	module, fn := parseFunc(t, splitWriteSource)
	require.True(t, applyAndValidate(t, module, fn, SplitTransferPatterns(module.Context, nil)))

	assert.Equal(t, 0, numOps[ir.InsertStridedSlice](fn))
	assert.Equal(t, 4, numOps[ir.TransferWrite](fn))

	_, reference := parseFunc(t, splitWriteSource)
	wantBuf := interp.NewBuffer([]int64{4, 4}, ir.F32)
	_, err := interp.Run(reference, splitWriteArgs(wantBuf))
	require.NoError(t, err)

	gotBuf := interp.NewBuffer([]int64{4, 4}, ir.F32)
	_, err = interp.Run(fn, splitWriteArgs(gotBuf))
	require.NoError(t, err)
	assert.Equal(t, wantBuf.Bits, gotBuf.Bits)
}

func TestSplitTransfer_IgnoreFilter(t *testing.T) {
	module, fn := parseFunc(t, splitReadSource)
	ignoreAll := func(*ir.Operation) bool { return true }
	assert.False(t, applyAndValidate(t, module, fn, SplitTransferPatterns(module.Context, ignoreAll)))
	assert.Equal(t, 1, numOps[ir.TransferRead](fn))
}

func TestSplitTransferRead_DeclinesMisaligned(t *testing.T) {
	module, fn := parseFunc(t, `func @sr(%arg0: memref<4x4xf32>) -> vector<2x2xf32> {
  %0 = constant {value = 0} : () -> i64
  %1 = constant {value = 0.0} : () -> f32
  %2 = transfer_read %arg0, %0, %0, %1 {permutation = [0, 1]} : (memref<4x4xf32>, i64, i64, f32) -> vector<4x4xf32>
  %3 = extract_strided_slice %2 {offsets = [1, 0], sizes = [2, 2], strides = [1, 1]} : (vector<4x4xf32>) -> vector<2x2xf32>
  return %3 : (vector<2x2xf32>)
}
`)
	assert.False(t, applyAndValidate(t, module, fn, SplitTransferPatterns(module.Context, nil)))
}
