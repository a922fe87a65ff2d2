package nodelink

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

func buildModel(t *testing.T) (*model.Model, *nodes.L2NormNode) {
	t.Helper()
	m := model.NewModel()
	x, err := model.Add(m, nodes.NewInput(model.PortTypeReal, 2))
	if err != nil {
		t.Fatal(err)
	}
	swapped, err := m.SimplifyOutputs(model.PortElements{
		{Port: x.Output(), Start: 1, Count: 1},
		{Port: x.Output(), Start: 0, Count: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	norm, err := model.Add(m, nodes.NewL2Norm(swapped))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.Add(m, nodes.NewOutput(norm.Output())); err != nil {
		t.Fatal(err)
	}
	return m, norm
}

func TestToDOT(t *testing.T) {
	m, norm := buildModel(t)
	ctx := model.NewTransformContext(compiler.New(nodes.CompilableKinds()...))
	sub, err := model.NewSubmodel(m, []*model.OutputPort{norm.Output()})
	if err != nil {
		t.Fatal(err)
	}

	dot, err := ToDOT(m, Options{Context: ctx, Submodel: sub})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	if !strings.HasPrefix(dot, "digraph G {") {
		t.Errorf("missing digraph header:\n%s", dot)
	}
	if got := strings.Count(dot, " -> "); got != 4 {
		t.Errorf("edges = %d, want 4:\n%s", got, dot)
	}
	normLine := lineFor(dot, dotID(norm)+" [")
	if !strings.Contains(normLine, `label="l2norm"`) || !strings.Contains(normLine, "#f8d0d0") || !strings.Contains(normLine, "bold") {
		t.Errorf("l2norm node not styled as uncompilable submodel member: %s", normLine)
	}
	spliceLine := lineFor(dot, `label="splice"`)
	if !strings.Contains(spliceLine, "dashed") {
		t.Errorf("splice node not dashed: %s", spliceLine)
	}
	if !strings.Contains(dot, `label="real x2"`) {
		t.Errorf("missing port label:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	m, _ := buildModel(t)
	dot, err := ToDOT(m, Options{Detailed: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, `ranges: [[1 1] [0 1]]`) {
		t.Errorf("splice attributes missing:\n%s", dot)
	}
	if !strings.Contains(dot, `output -> input_0`) {
		t.Errorf("port names missing:\n%s", dot)
	}
	if strings.Contains(dot, "#f8d0d0") {
		t.Error("nodes marked uncompilable without a context")
	}
}

func TestToDOTUnbound(t *testing.T) {
	m := model.NewModel()
	x, _ := model.Add(m, nodes.NewInput(model.PortTypeReal, 1))
	out, _ := model.Add(m, nodes.NewOutput(x.Output()))
	out.Input().Unbind()
	if _, err := ToDOT(m, Options{}); err == nil {
		t.Error("expected error for unbound input")
	}
}

func TestRenderSVG(t *testing.T) {
	m, _ := buildModel(t)
	dot, err := ToDOT(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(dot)
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `)) {
		t.Errorf("root element not normalized: %.200s", svg)
	}
}

func TestRenderSVGInvalid(t *testing.T) {
	if _, err := RenderSVG("digraph {"); err == nil {
		t.Error("expected parse error")
	}
}

func lineFor(dot, substr string) string {
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}
