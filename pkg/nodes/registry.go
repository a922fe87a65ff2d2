package nodes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Decoder rebuilds a node from its archived attributes. inputs are the
// already-resolved ports the node's inputs bind to, in declaration order.
type Decoder func(attrs model.Attributes, inputs []*model.OutputPort) (model.Node, error)

// KindInfo describes a registered node kind.
type KindInfo struct {
	Kind        string
	Description string
	Inputs      []string
	Refinable   bool
	// Decode is nil for kinds that only exist at runtime.
	Decode Decoder
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]KindInfo)
)

// Register adds a kind. Registering a kind twice replaces the first entry.
func Register(info KindInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[info.Kind] = info
}

// Lookup returns the registered kind.
func Lookup(kind string) (KindInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[kind]
	return info, ok
}

// Kinds returns every registered kind, sorted by name.
func Kinds() []KindInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]KindInfo, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Unarchive rebuilds a node of the given kind.
func Unarchive(kind string, attrs model.Attributes, inputs []*model.OutputPort) (model.Node, error) {
	info, ok := Lookup(kind)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "unknown node kind %q", kind)
	}
	if info.Decode == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "%s nodes cannot be unarchived", kind)
	}
	if len(inputs) != len(info.Inputs) && info.Inputs != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"%s node takes %d inputs, got %d", kind, len(info.Inputs), len(inputs))
	}
	if attrs == nil {
		attrs = model.Attributes{}
	}
	return info.Decode(attrs, inputs)
}

func init() {
	for _, info := range []KindInfo{
		{Kind: KindInput, Description: "model input fed from outside", Inputs: []string{}, Decode: decodeInput},
		{Kind: KindConstant, Description: "fixed values", Inputs: []string{}, Decode: decodeConstant},
		{Kind: KindOutput, Description: "model result", Inputs: []string{"input"}, Decode: decodeOutput},
		{Kind: KindUnary, Description: "elementwise unary operation", Inputs: []string{"input"}, Decode: decodeUnary},
		{Kind: KindBinary, Description: "elementwise binary operation", Inputs: []string{"input_a", "input_b"}, Decode: decodeBinary},
		{Kind: KindSum, Description: "sum of elements", Inputs: []string{"input"}, Decode: decodeSum},
		{Kind: KindDot, Description: "dot product", Inputs: []string{"input_a", "input_b"}, Refinable: true, Decode: decodeDot},
		{Kind: KindL2Norm, Description: "euclidean norm", Inputs: []string{"input"}, Refinable: true, Decode: decodeL2Norm},
		{Kind: KindAffine, Description: "scale and bias", Inputs: []string{"input"}, Refinable: true, Decode: decodeAffine},
		{Kind: KindMean, Description: "mean of elements", Inputs: []string{"input"}, Refinable: true, Decode: decodeMean},
		{Kind: KindSink, Description: "runtime callback", Inputs: []string{"input"}},
		// Splice inputs vary with the number of fragments.
		{Kind: model.KindSplice, Description: "concatenation of port fragments", Decode: decodeSplice},
	} {
		Register(info)
	}
}

func decodeInput(attrs model.Attributes, _ []*model.OutputPort) (model.Node, error) {
	typ, err := attrType(attrs)
	if err != nil {
		return nil, err
	}
	size, err := attrInt(attrs, "size")
	if err != nil {
		return nil, err
	}
	return NewInput(typ, size), nil
}

func decodeConstant(attrs model.Attributes, _ []*model.OutputPort) (model.Node, error) {
	typ, err := attrType(attrs)
	if err != nil {
		return nil, err
	}
	values, err := attrFloats(attrs, "values")
	if err != nil {
		return nil, err
	}
	return NewConstant(typ, values...), nil
}

func decodeOutput(_ model.Attributes, in []*model.OutputPort) (model.Node, error) {
	return NewOutput(in[0]), nil
}

func decodeUnary(attrs model.Attributes, in []*model.OutputPort) (model.Node, error) {
	s, err := attrString(attrs, "op")
	if err != nil {
		return nil, err
	}
	op, err := ParseUnaryOp(s)
	if err != nil {
		return nil, err
	}
	return NewUnary(op, in[0]), nil
}

func decodeBinary(attrs model.Attributes, in []*model.OutputPort) (model.Node, error) {
	s, err := attrString(attrs, "op")
	if err != nil {
		return nil, err
	}
	op, err := ParseBinaryOp(s)
	if err != nil {
		return nil, err
	}
	return NewBinary(op, in[0], in[1]), nil
}

func decodeSum(_ model.Attributes, in []*model.OutputPort) (model.Node, error) {
	return NewSum(in[0]), nil
}

func decodeDot(_ model.Attributes, in []*model.OutputPort) (model.Node, error) {
	return NewDotProduct(in[0], in[1]), nil
}

func decodeL2Norm(_ model.Attributes, in []*model.OutputPort) (model.Node, error) {
	return NewL2Norm(in[0]), nil
}

func decodeMean(_ model.Attributes, in []*model.OutputPort) (model.Node, error) {
	return NewMean(in[0]), nil
}

func decodeAffine(attrs model.Attributes, in []*model.OutputPort) (model.Node, error) {
	scale, err := attrFloats(attrs, "scale")
	if err != nil {
		return nil, err
	}
	bias, err := attrFloats(attrs, "bias")
	if err != nil {
		return nil, err
	}
	return NewAffine(in[0], scale, bias), nil
}

func decodeSplice(attrs model.Attributes, in []*model.OutputPort) (model.Node, error) {
	raw, ok := attrs["ranges"]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "splice: missing attribute \"ranges\"")
	}
	ranges, ok := asSlice(raw)
	if !ok || len(ranges) != len(in) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "splice: need one [start, count] range per input")
	}
	elements := make(model.PortElements, len(in))
	for i, r := range ranges {
		pair, err := toFloats(r)
		if err != nil || len(pair) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "splice: range %d is not a [start, count] pair", i)
		}
		elements[i] = model.PortRange{Port: in[i], Start: int(pair[0]), Count: int(pair[1])}
	}
	return model.NewSpliceNode(elements), nil
}

// Attribute values come from JSON, TOML or YAML decoders, so numbers may be
// any of float64, int64 or int and lists may be []any.

func attrType(attrs model.Attributes) (model.PortType, error) {
	s, err := attrString(attrs, "type")
	if err != nil {
		return model.PortTypeNone, err
	}
	return model.ParsePortType(s)
}

func attrString(attrs model.Attributes, key string) (string, error) {
	v, ok := attrs[key]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "missing attribute %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "attribute %q must be a string, got %T", key, v)
	}
	return s, nil
}

func attrInt(attrs model.Attributes, key string) (int, error) {
	v, ok := attrs[key]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "missing attribute %q", key)
	}
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "attribute %q must be an integer, got %v", key, v)
	}
	return int(f), nil
}

func attrFloats(attrs model.Attributes, key string) ([]float64, error) {
	v, ok := attrs[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing attribute %q", key)
	}
	out, err := toFloats(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "attribute %q", key)
	}
	return out, nil
}

func toFloats(v any) ([]float64, error) {
	if fs, ok := v.([]float64); ok {
		return fs, nil
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("want a list of numbers, got %T", v)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, not a number", i, item)
		}
		out[i] = f
	}
	return out, nil
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []float64:
		out := make([]any, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	case [][]int:
		out := make([]any, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
