package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

const policy = `
max_iterations = 4

[compiler]
kinds = ["input", "constant", "binary", "sum", "output", "splice", "dot"]

[[actions]]
kind = "dot"
action = "compile"

[[actions]]
kind = "mean"
action = "refine"
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(policy))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Len(t, cfg.Compiler.Kinds, 7)
	assert.Equal(t, []string{"dot=compile", "mean=refine"}, cfg.ActionStrings())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"syntax", "max_iterations = ", errors.ErrCodeInvalidFormat},
		{"zero iterations", "max_iterations = 0", errors.ErrCodeInvalidInput},
		{"too many iterations", "max_iterations = 5000", errors.ErrCodeInvalidInput},
		{"unknown key", "max_passes = 3", errors.ErrCodeInvalidInput},
		{"unknown kind", "[compiler]\nkinds = [\"fft\"]", errors.ErrCodeInvalidInput},
		{"bad action", "[[actions]]\nkind = \"dot\"\naction = \"inline\"", errors.ErrCodeInvalidInput},
		{"missing kind", "[[actions]]\naction = \"refine\"", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v, want %s", err, tt.code)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(policy), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxIterations)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	cfg, err := Parse([]byte(policy))
	require.NoError(t, err)
	tc := cfg.Context()

	m := model.NewModel()
	x, _ := model.Add(m, nodes.NewInput(model.PortTypeReal, 3))
	dot, _ := model.Add(m, nodes.NewDotProduct(x.Output(), x.Output()))
	mean, _ := model.Add(m, nodes.NewMean(x.Output()))
	neg, _ := model.Add(m, nodes.NewUnary(nodes.OpNegate, x.Output()))
	sum, _ := model.Add(m, nodes.NewSum(x.Output()))

	assert.Equal(t, model.NodeActionCompile, tc.NodeAction(dot), "override")
	assert.Equal(t, model.NodeActionRefine, tc.NodeAction(mean), "override")
	assert.Equal(t, model.NodeActionRefine, tc.NodeAction(neg), "unary is not in the allow-list")
	assert.Equal(t, model.NodeActionCompile, tc.NodeAction(sum))
}

func TestDefaultContext(t *testing.T) {
	tc := Default().Context()
	m := model.NewModel()
	x, _ := model.Add(m, nodes.NewInput(model.PortTypeReal, 2))
	norm, _ := model.Add(m, nodes.NewL2Norm(x.Output()))
	assert.True(t, tc.IsNodeCompilable(x))
	assert.False(t, tc.IsNodeCompilable(norm))
}
