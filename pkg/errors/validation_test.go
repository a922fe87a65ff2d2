package errors

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "mean", false},
		{"valid with dash", "my-model", false},
		{"valid with underscore", "_scratch", false},
		{"valid with dot", "layer.0", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"leading digit", "0layer", true},
		{"path traversal", "a..b", true},
		{"slash", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidName) {
				t.Errorf("ValidateName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidName)
			}
		})
	}
}

func TestValidatePortRef(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"x:output", false},
		{"layer.0:output", false},
		{"x", true},
		{":output", true},
		{"x:", true},
		{"x:out put", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidatePortRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePortRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
