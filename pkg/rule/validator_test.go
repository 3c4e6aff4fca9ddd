package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/gradevault/pkg/rule"
)

type gradeForm struct {
	Grade string   `json:"grade" rule:"segment"`
	Types []string `json:"types" rule:"dive,mediatype"`
	Email string   `json:"email" rule:"omitempty,email"`
}

func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

func TestSegmentAndMediaType(t *testing.T) {
	tests := []struct {
		name string
		in   gradeForm
		ok   bool
	}{
		{"valid", gradeForm{Grade: "grade11-12", Types: []string{"application/pdf", "image/*"}}, true},
		{"empty grade", gradeForm{Grade: ""}, false},
		{"dot in grade", gradeForm{Grade: "grade.7"}, false},
		{"slash in grade", gradeForm{Grade: "a/b"}, false},
		{"bracket in grade", gradeForm{Grade: "g[1]"}, false},
		{"bad media type", gradeForm{Grade: "grade7", Types: []string{"pdf"}}, false},
		{"wildcard type", gradeForm{Grade: "grade7", Types: []string{"*/*"}}, false},
		{"bad email", gradeForm{Grade: "grade7", Email: "nope"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rule.ValidateStruct(tt.in)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateStruct(%+v) = %v, want ok=%v", tt.in, err, tt.ok)
			}
		})
	}
}

func TestErrors_UsesJSONNames(t *testing.T) {
	err := rule.ValidateStruct(gradeForm{Grade: "a.b", Email: "x"})

	fields := rule.Errors(err)
	if _, ok := fields["gradeForm.grade"]; !ok {
		t.Errorf("missing grade field in %v", fields)
	}

	if _, ok := fields["gradeForm.email"]; !ok {
		t.Errorf("missing email field in %v", fields)
	}

	if rule.Errors(nil) != nil {
		t.Error("Errors(nil) should be nil")
	}
}

func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("head@school.edu", "required,email"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}

	if err := rule.ValidateVar("invalid-email", "required,email"); err == nil {
		t.Error("invalid email accepted")
	}
}

func TestRegisterValidationAndAlias(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})
	if err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}

	if err := rule.ValidateVar("test", "even_length"); err != nil {
		t.Errorf("even string rejected: %v", err)
	}

	if err := rule.ValidateVar("test1", "even_length"); err == nil {
		t.Error("odd string accepted")
	}

	rule.RegisterAlias("min_required", "required,min=3")

	if err := rule.ValidateVar("ab", "min_required"); err == nil {
		t.Error("alias not applied")
	}
}
