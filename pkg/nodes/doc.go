// Package nodes provides the reference node kinds.
//
// Primitive kinds (input, constant, output, unary, binary, sum, sink) can be
// compiled directly. The other kinds know how to lower themselves into
// primitives when a [model.Transformer] refines them:
//
//	dot    -> binary(multiply) + sum
//	l2norm -> dot + unary(sqrt)          (two passes)
//	affine -> 2x constant + binary(multiply) + binary(add)
//	mean   -> sum + constant + binary(multiply)
//
// Every archivable kind is registered with a decoder, so models can be
// rebuilt from documents with [Unarchive]. [Evaluate] runs a model on
// concrete input values.
package nodes
