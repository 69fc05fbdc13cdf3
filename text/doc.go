// Package text provides the textual assembly syntax for vecir modules.
//
// The syntax is line-oriented and fully regular: every operation is
//
//	[%name =] opname [%operand, ...] [{attr = value, ...}] : (operand types) [-> result type]
//
// inside functions of the form
//
//	func @name(%arg0: memref<8x8xf32>) -> vector<4xf32> { ... }
//
// The printer emits canonical text that round-trips through the parser.
// Parse errors carry source locations and render with caret context.
package text
