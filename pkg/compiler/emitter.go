package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Instruction is one step of a program. Dest receives a vector of Size
// values of Type computed by Op from Args and the immediates Imm.
type Instruction struct {
	Op   string    `json:"op"`
	Dest string    `json:"dest"`
	Args []string  `json:"args,omitempty"`
	Imm  []float64 `json:"imm,omitempty"`
	Type string    `json:"type"`
	Size int       `json:"size"`
}

func (in Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %s", in.Dest, in.Op)
	for i, a := range in.Args {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(a)
	}
	if len(in.Imm) > 0 {
		imm := make([]string, len(in.Imm))
		for i, v := range in.Imm {
			imm[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(imm, " "))
	}
	fmt.Fprintf(&b, "  ; %s x%d", in.Type, in.Size)
	return b.String()
}

// Program is a linear function: arguments, instructions and results, all
// referring to named vector variables.
type Program struct {
	Name         string        `json:"name"`
	Args         []string      `json:"args"`
	Results      []string      `json:"results"`
	Instructions []Instruction `json:"instructions"`
}

// String renders the program as a listing.
func (p *Program) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(%s) -> (%s)\n", p.Name, strings.Join(p.Args, ", "), strings.Join(p.Results, ", "))
	for _, in := range p.Instructions {
		fmt.Fprintf(&b, "  %s\n", in)
	}
	return b.String()
}

// FunctionEmitter assigns variables to output ports and collects the
// instructions of one program.
type FunctionEmitter struct {
	program *Program
	vars    map[model.PortID]string
}

func newFunctionEmitter(name string) *FunctionEmitter {
	if name == "" {
		name = "main"
	}
	return &FunctionEmitter{
		program: &Program{Name: name},
		vars:    make(map[model.PortID]string),
	}
}

// Var returns the variable holding the port's values.
func (f *FunctionEmitter) Var(p *model.OutputPort) (string, error) {
	v, ok := f.vars[p.ID()]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidState, "output %s used before it was emitted", p.ID())
	}
	return v, nil
}

// Arg declares dest as a program argument.
func (f *FunctionEmitter) Arg(dest *model.OutputPort) error {
	v, err := f.define(dest)
	if err != nil {
		return err
	}
	f.program.Args = append(f.program.Args, v)
	return nil
}

// Result marks the variable of p as a program result.
func (f *FunctionEmitter) Result(p *model.OutputPort) error {
	v, err := f.Var(p)
	if err != nil {
		return err
	}
	f.program.Results = append(f.program.Results, v)
	return nil
}

// Emit appends an instruction computing dest from the values the inputs
// reference.
func (f *FunctionEmitter) Emit(op string, dest *model.OutputPort, inputs []*model.InputPort, imm ...float64) error {
	args := make([]string, len(inputs))
	for i, in := range inputs {
		ref, err := in.ReferencedPort()
		if err != nil {
			return err
		}
		if args[i], err = f.Var(ref); err != nil {
			return err
		}
	}
	v, err := f.define(dest)
	if err != nil {
		return err
	}
	f.program.Instructions = append(f.program.Instructions, Instruction{
		Op:   op,
		Dest: v,
		Args: args,
		Imm:  imm,
		Type: dest.Type().String(),
		Size: dest.Size(),
	})
	return nil
}

func (f *FunctionEmitter) define(p *model.OutputPort) (string, error) {
	if _, ok := f.vars[p.ID()]; ok {
		return "", errors.New(errors.ErrCodeInvalidState, "output %s emitted twice", p.ID())
	}
	v := "v" + strconv.Itoa(len(f.vars))
	f.vars[p.ID()] = v
	return v, nil
}
