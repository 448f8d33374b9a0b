package validator

import (
	"errors"
	"testing"
)

type chatInput struct {
	SessionID string `json:"sessionId" validate:"required,notblank"`
	Message   string `json:"message" validate:"required,notblank"`
	Internal  string `validate:"omitempty,max=3"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     chatInput
		wantField string
		wantRule  string
	}{
		{name: "valid", input: chatInput{SessionID: "s1", Message: "hi"}},
		{name: "missing session", input: chatInput{Message: "hi"}, wantField: "sessionId", wantRule: "required"},
		{name: "whitespace message", input: chatInput{SessionID: "s1", Message: " \t\n"}, wantField: "message", wantRule: "notblank"},
		{name: "untagged field uses go name", input: chatInput{SessionID: "s1", Message: "hi", Internal: "long"}, wantField: "Internal", wantRule: "max"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var fieldErrs Errors
			if !errors.As(err, &fieldErrs) {
				t.Fatalf("expected Errors, got %T: %v", err, err)
			}
			if !fieldErrs.Has(tt.wantField, tt.wantRule) {
				t.Errorf("expected %s to fail %s, got %v", tt.wantField, tt.wantRule, fieldErrs)
			}
		})
	}
}

func TestErrorsMessage(t *testing.T) {
	err := Errors{{Field: "sessionId", Rule: "required"}, {Field: "message", Rule: "notblank"}}

	want := "validation failed: sessionId failed required, message failed notblank"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
