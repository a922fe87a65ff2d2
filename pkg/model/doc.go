// Package model provides the dataflow-graph representation and the engine
// that copies, refines and grafts it.
//
// # Overview
//
// A [Model] owns a set of nodes. Every node has named input and output
// ports; an [InputPort] consumes the values of exactly one [OutputPort].
// Models are acyclic and are built front to back, so a node can only read
// outputs that already exist:
//
//	m := model.NewModel()
//	x, _ := model.Add(m, nodes.NewInput(model.PortTypeReal, 3))
//	neg, _ := model.Add(m, nodes.NewUnary(nodes.OpNegate, x.Output()))
//
// Ports are identified by [PortID] (node id and port name), never by
// pointer. Output ports keep the ids of the inputs that reference them.
//
// # Transformations
//
// A [Transformer] builds a new model from an old one by asking every node to
// [Node.Copy] or [Node.Refine] itself into the destination. While it does so
// it records which destination port replaces each source port; nodes use
// [Transformer.GetCorrespondingInputs] to wire themselves up, and callers use
// [Transformer.GetCorrespondingOutputs] afterwards to find their results:
//
//	t := model.NewTransformer()
//	refined, err := t.RefineModel(m, tc, 10)
//	out, err := t.GetCorrespondingOutputs(neg.Output())
//
// [Transformer.RefineModel] runs passes until nothing refines, the compiler
// accepts every node, or the iteration cap is reached. Maps of successive
// passes are composed, so queries always refer to the original model.
//
// # Submodels and grafting
//
// A [Submodel] is the part of a model needed for some outputs, optionally
// cut at free inputs. [Transformer.CopySubmodelOnto] copies it into another
// model with the free inputs fed from given ports. Grafting into the
// submodel's own model is in place: nodes whose inputs did not change are
// reused rather than duplicated.
//
// # Policy
//
// A [TransformContext] pairs a [Compiler] with per-node overrides. The last
// override that does not abstain wins; without one, compilable nodes are
// copied and the rest refined.
//
// # Errors
//
// Failures carry a code from the errors package: INVALID_STATE for misuse
// of the graph (unmapped ports, stale references, cycles) and
// INVALID_ARGUMENT for bad inputs (foreign ports, wrong sizes). A failed
// transformation leaves a partial destination model that should be
// discarded.
package model
