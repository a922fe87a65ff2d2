// Package compiler emits linear programs from fully refined models.
//
// A [Compiler] answers [model.Compiler] queries during refinement and then
// walks the refined model, asking each node to emit itself through a
// [FunctionEmitter]. Node kinds opt in by implementing [Compilable].
package compiler
