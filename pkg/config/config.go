// Package config loads refinement policies from TOML files.
//
// A policy bounds the number of refinement passes, restricts which node
// kinds the compiler accepts and overrides the action taken for specific
// kinds:
//
//	max_iterations = 10
//
//	[compiler]
//	kinds = ["input", "constant", "unary", "binary", "sum", "output", "splice"]
//
//	[[actions]]
//	kind = "dot"
//	action = "compile"
//
// Rules are applied in file order; a later rule for the same kind wins.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

// DefaultMaxIterations bounds refinement when a policy does not.
const DefaultMaxIterations = 10

// Config is a refinement policy.
type Config struct {
	MaxIterations int            `toml:"max_iterations" json:"max_iterations" validate:"min=1,max=1000"`
	Compiler      CompilerConfig `toml:"compiler" json:"compiler"`
	Actions       []ActionRule   `toml:"actions" json:"actions,omitempty" validate:"dive"`
}

// CompilerConfig restricts the compiler. An empty kind list accepts every
// kind that can be compiled.
type CompilerConfig struct {
	Kinds []string `toml:"kinds" json:"kinds,omitempty" validate:"dive,required,nodekind"`
}

// ActionRule forces the action for every node of a kind.
type ActionRule struct {
	Kind   string `toml:"kind" json:"kind" validate:"required,nodekind"`
	Action string `toml:"action" json:"action" validate:"required,oneof=abstain refine compile"`
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("nodekind", func(fl validator.FieldLevel) bool {
		_, ok := nodes.Lookup(fl.Field().String())
		return ok
	})
}

// Default returns the built-in policy: ten passes and a compiler that
// accepts every primitive kind.
func Default() *Config {
	return &Config{
		MaxIterations: DefaultMaxIterations,
		Compiler:      CompilerConfig{Kinds: nodes.CompilableKinds()},
	}
}

// Load reads and validates the policy file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a policy. Keys missing from data keep their
// defaults; unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and kind names.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Context builds the transform context the policy describes.
func (c *Config) Context() *model.TransformContext {
	tc := model.NewTransformContext(compiler.New(c.Compiler.Kinds...))
	for _, r := range c.Actions {
		kind := r.Kind
		action, _ := model.ParseNodeAction(r.Action)
		tc.AddNodeActionFunc(func(n model.Node) model.NodeAction {
			if n.Kind() == kind {
				return action
			}
			return model.NodeActionAbstain
		})
	}
	return tc
}

// ActionStrings returns the rules as "kind=action" in file order.
func (c *Config) ActionStrings() []string {
	out := make([]string, len(c.Actions))
	for i, r := range c.Actions {
		out[i] = r.Kind + "=" + r.Action
	}
	return out
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config")
	}
	e := verrs[0]
	var msg string
	switch e.Tag() {
	case "required":
		msg = "field is required"
	case "min", "max":
		msg = fmt.Sprintf("must be between 1 and 1000, got %v", e.Value())
	case "oneof":
		msg = fmt.Sprintf("must be one of %s, got %q", e.Param(), e.Value())
	case "nodekind":
		msg = fmt.Sprintf("unknown node kind %q", e.Value())
	default:
		msg = fmt.Sprintf("validation failed (%s)", e.Tag())
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s: %s", e.Namespace(), msg)
}
