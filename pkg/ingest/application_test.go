package ingest

import (
	"errors"
	"testing"
)

func TestValidateApplication(t *testing.T) {
	sub, err := ValidateApplication(map[string]string{
		"name":       "김민준",
		"student_id": "2023123456",
		"email":      "minjun@example.com",
		"department": "컴퓨터공학과",
		"shirt_size": "L",
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if sub.Name != "김민준" || sub.StudentID != "2023123456" {
		t.Fatalf("required fields mangled: %+v", sub)
	}
	if sub.Email != "minjun@example.com" || sub.Department != "컴퓨터공학과" {
		t.Fatalf("known optional fields mangled: %+v", sub)
	}
	if sub.Extra["shirt_size"] != "L" {
		t.Fatalf("extra field not preserved: %+v", sub.Extra)
	}
}

func TestValidateApplicationMissingRequired(t *testing.T) {
	_, err := ValidateApplication(map[string]string{"name": "김민준"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError got %v", err)
	}
	if ve.Field != FieldStudentID {
		t.Fatalf("expected missing student_id got %q", ve.Field)
	}

	_, err = ValidateApplication(map[string]string{"student_id": "2023123456", "name": "   "})
	if !errors.As(err, &ve) || ve.Field != FieldName {
		t.Fatalf("expected missing name got %v", err)
	}
}
