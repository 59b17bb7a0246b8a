package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"duplicate content", NewDuplicateContentError("abc123"), IsDuplicateContent, true},
		{"unsupported format", NewUnsupportedFormatError("report.pdf"), IsUnsupportedFormat, true},
		{"not found", NewNotFoundError("version", "v-1"), IsNotFound, true},
		{"authentication", NewAuthenticationError("token refused", nil), IsAuthentication, true},
		{"wrong predicate", NewNotFoundError("version", "v-1"), IsDuplicateContent, false},
		{"plain error", errors.New("boom"), IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorPredicatesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("putting version: %w", NewDuplicateContentError("abc123"))
	if !IsDuplicateContent(err) {
		t.Error("IsDuplicateContent should see through fmt.Errorf wrapping")
	}

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatal("errors.As failed to extract *Error")
	}
	if pe.Class != ErrorClassConflict {
		t.Errorf("class = %s, want %s", pe.Class, ErrorClassConflict)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAuthenticationError("token endpoint unreachable", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestDataMapPreservesValues(t *testing.T) {
	item := ConfigurationItem{
		ID:    "Users_0",
		Type:  ConfigTypeUser,
		Sheet: "Users",
		Row:   1,
		Data: []Column{
			{Name: "Employee ID", Value: "E100"},
			{Name: "Role", Value: "admin"},
		},
	}

	m := item.DataMap()
	if len(m) != 2 {
		t.Fatalf("len = %d, want 2", len(m))
	}
	if m["Employee ID"] != "E100" || m["Role"] != "admin" {
		t.Errorf("unexpected map contents: %v", m)
	}
}

func TestAnalysisResultTypes(t *testing.T) {
	res := &AnalysisResult{
		Configurations: []ConfigurationItem{
			{ID: "a_0", Type: ConfigTypeUser},
			{ID: "a_1", Type: ConfigTypeUser},
			{ID: "b_0", Type: ConfigTypeCompensation},
		},
	}

	types := res.Types()
	if len(types) != 2 {
		t.Fatalf("len = %d, want 2", len(types))
	}
	if types[0] != ConfigTypeUser || types[1] != ConfigTypeCompensation {
		t.Errorf("types = %v, want [user compensation]", types)
	}
}
