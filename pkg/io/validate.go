package io

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("nodeid", func(fl validator.FieldLevel) bool {
		return errors.ValidateName(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation("portref", func(fl validator.FieldLevel) bool {
		return errors.ValidatePortRef(fl.Field().String()) == nil
	})
}

// Validate checks the document shape: required fields, well-formed ids and
// port references, unique node ids and references to earlier nodes only.
// Kind-specific attributes are checked when the model is built.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil document")
	}
	if err := validate.Struct(d); err != nil {
		return formatValidationError(err)
	}
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		ports := make(map[string]bool, len(n.Inputs))
		for _, in := range n.Inputs {
			if ports[in.Port] {
				return errors.New(errors.ErrCodeInvalidInput, "node %s: input %q bound twice", n.ID, in.Port)
			}
			ports[in.Port] = true
			from, _, _ := SplitPortRef(in.From)
			if !seen[from] {
				return errors.New(errors.ErrCodeInvalidInput,
					"node %s: input %q reads from %q, which is not defined before it", n.ID, in.Port, from)
			}
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeInvalidInput, "node %d: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid document")
	}
	e := verrs[0]
	var msg string
	switch e.Tag() {
	case "required":
		msg = "field is required"
	case "min":
		msg = fmt.Sprintf("must have at least %s entries", e.Param())
	case "max":
		msg = fmt.Sprintf("must not exceed %s characters", e.Param())
	case "nodeid":
		msg = fmt.Sprintf("invalid node id %q", e.Value())
	case "portref":
		msg = fmt.Sprintf("invalid port reference %q, want node:port", e.Value())
	default:
		msg = fmt.Sprintf("validation failed (%s)", e.Tag())
	}
	return errors.New(errors.ErrCodeInvalidInput, "%s: %s", e.Namespace(), msg)
}
