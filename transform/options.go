package transform

import "fmt"

// ContractLowering selects how contraction operations are decomposed.
type ContractLowering int

const (
	// ContractDot decomposes into finer contractions ending in rank-1
	// dot products.
	ContractDot ContractLowering = iota
	// ContractMatmul lowers to the flat matrix-multiply primitive.
	ContractMatmul
	// ContractOuterProduct lowers to a chain of outer products over
	// the contracted dimension.
	ContractOuterProduct
)

func (c ContractLowering) String() string {
	switch c {
	case ContractDot:
		return "dot"
	case ContractMatmul:
		return "matmul"
	case ContractOuterProduct:
		return "outerproduct"
	default:
		return fmt.Sprintf("ContractLowering(%d)", int(c))
	}
}

// ParseContractLowering maps a configuration keyword to its strategy.
func ParseContractLowering(s string) (ContractLowering, error) {
	switch s {
	case "dot":
		return ContractDot, nil
	case "matmul":
		return ContractMatmul, nil
	case "outerproduct":
		return ContractOuterProduct, nil
	default:
		return 0, fmt.Errorf("unknown contract lowering %q", s)
	}
}

// TransposeLowering selects how transpose operations are decomposed.
type TransposeLowering int

const (
	// TransposeEltWise decomposes into per-element extract/insert.
	TransposeEltWise TransposeLowering = iota
	// TransposeFlat lowers to the flat 2-D transpose primitive.
	TransposeFlat
)

func (t TransposeLowering) String() string {
	switch t {
	case TransposeEltWise:
		return "eltwise"
	case TransposeFlat:
		return "flat"
	default:
		return fmt.Sprintf("TransposeLowering(%d)", int(t))
	}
}

// ParseTransposeLowering maps a configuration keyword to its strategy.
func ParseTransposeLowering(s string) (TransposeLowering, error) {
	switch s {
	case "eltwise":
		return TransposeEltWise, nil
	case "flat":
		return TransposeFlat, nil
	default:
		return 0, fmt.Errorf("unknown transpose lowering %q", s)
	}
}

// TransferSplit selects how masked transfers are handled.
type TransferSplit int

const (
	// TransferSplitNone leaves masked transfers untouched.
	TransferSplitNone TransferSplit = iota
	// TransferSplitVectorTransfer clears masked flags on a transfer
	// when static shapes prove it in bounds.
	TransferSplitVectorTransfer
	// TransferSplitLinalgCopy materializes the padding fill and
	// transfers only the statically in-bounds portion.
	TransferSplitLinalgCopy
	// TransferSplitForceUnmasked clears masked flags unconditionally.
	TransferSplitForceUnmasked
)

func (t TransferSplit) String() string {
	switch t {
	case TransferSplitNone:
		return "none"
	case TransferSplitVectorTransfer:
		return "vector-transfer"
	case TransferSplitLinalgCopy:
		return "linalg-copy"
	case TransferSplitForceUnmasked:
		return "force-unmasked"
	default:
		return fmt.Sprintf("TransferSplit(%d)", int(t))
	}
}

// ParseTransferSplit maps a configuration keyword to its strategy.
func ParseTransferSplit(s string) (TransferSplit, error) {
	switch s {
	case "none":
		return TransferSplitNone, nil
	case "vector-transfer":
		return TransferSplitVectorTransfer, nil
	case "linalg-copy":
		return TransferSplitLinalgCopy, nil
	case "force-unmasked":
		return TransferSplitForceUnmasked, nil
	default:
		return 0, fmt.Errorf("unknown transfer split %q", s)
	}
}

// Options selects lowering strategies. The zero value holds the
// defaults: Dot contraction, element-wise transpose, no transfer
// split. Setters take the receiver by value and return the updated
// copy, so configurations chain without shared state.
type Options struct {
	ContractLowering  ContractLowering
	TransposeLowering TransposeLowering
	TransferSplit     TransferSplit
}

// WithContractLowering returns a copy with the contraction strategy set.
func (o Options) WithContractLowering(c ContractLowering) Options {
	o.ContractLowering = c
	return o
}

// WithTransposeLowering returns a copy with the transpose strategy set.
func (o Options) WithTransposeLowering(t TransposeLowering) Options {
	o.TransposeLowering = t
	return o
}

// WithTransferSplit returns a copy with the transfer-split strategy set.
func (o Options) WithTransferSplit(t TransferSplit) Options {
	o.TransferSplit = t
	return o
}
