package ingest

import "strings"

// Required application form fields. Everything else submitted with the form is
// carried along verbatim in Extra.
const (
	FieldName      = "name"
	FieldStudentID = "student_id"
)

// Submission is a validated membership-application payload.
type Submission struct {
	Name       string
	StudentID  string
	Email      string
	Department string
	Phone      string
	Extra      map[string]string
}

// ValidateApplication checks required fields and splits known fields from
// free-form extras. Missing name or student_id yields a *ValidationError.
func ValidateApplication(fields map[string]string) (Submission, error) {
	sub := Submission{}
	for _, req := range []string{FieldName, FieldStudentID} {
		if strings.TrimSpace(fields[req]) == "" {
			return Submission{}, &ValidationError{Field: req}
		}
	}
	for k, v := range fields {
		switch k {
		case FieldName:
			sub.Name = strings.TrimSpace(v)
		case FieldStudentID:
			sub.StudentID = strings.TrimSpace(v)
		case "email":
			sub.Email = v
		case "department":
			sub.Department = v
		case "phone":
			sub.Phone = v
		default:
			if sub.Extra == nil {
				sub.Extra = make(map[string]string)
			}
			sub.Extra[k] = v
		}
	}
	return sub, nil
}
