package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("bad %s", "input"), IsValidation},
		{"not found", NotFound("task"), IsNotFound},
		{"conflict", Conflict("tag %q exists", "work"), IsConflict},
		{"store", Store(errors.New("connection refused")), IsStore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("Expected %v to match its class", tt.err)
			}
			// Classes are mutually exclusive.
			matches := 0
			for _, check := range []func(error) bool{IsValidation, IsNotFound, IsConflict, IsStore} {
				if check(tt.err) {
					matches++
				}
			}
			if matches != 1 {
				t.Errorf("Expected exactly one class to match %v, got %d", tt.err, matches)
			}
		})
	}
}

func TestMessagesCarryDetail(t *testing.T) {
	err := Validation("unknown status %q", "done")
	if !strings.Contains(err.Error(), `"done"`) {
		t.Errorf("Expected the formatted detail, got %q", err)
	}

	err = NotFound("tag")
	if !strings.Contains(err.Error(), "tag") {
		t.Errorf("Expected the entity name, got %q", err)
	}
}

func TestStoreNilPassthrough(t *testing.T) {
	if Store(nil) != nil {
		t.Error("Expected Store(nil) to stay nil")
	}
}

func TestChecksRejectForeignErrors(t *testing.T) {
	plain := errors.New("something else")
	if IsValidation(plain) || IsNotFound(plain) || IsConflict(plain) || IsStore(plain) {
		t.Error("Expected a plain error to match no class")
	}
	if IsValidation(nil) || IsNotFound(nil) || IsConflict(nil) || IsStore(nil) {
		t.Error("Expected nil to match no class")
	}
}
