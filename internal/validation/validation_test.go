package validation

import (
	"testing"
)

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"usr_12345", true},
		{"alice", true},
		{"a.b-c_d", true},
		{"0123456789", true},

		// Invalid cases
		{"", false},
		{"user with spaces", false},
		{"user/../../etc", false},
		{"user@example.com", false},
		{string(make([]byte, 129)), false}, // too long
	}

	for _, tc := range tests {
		result := IsValidUserID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidUserID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("userId", "usr_1"),
		MaxLength("note", "short", 100),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("userId", ""),
		MaxLength("note", "this is far too long", 5),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestMaxLength(t *testing.T) {
	if err := MaxLength("f", "abc", 5)(); err != nil {
		t.Errorf("expected nil error under limit, got %v", err)
	}
	if err := MaxLength("f", "abcdef", 5)(); err == nil {
		t.Error("expected error over limit, got nil")
	}
}
