package strings

import "testing"

func TestToKebabCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"main", "main"},
		{"Microsoft.Storage", "microsoft-storage"},
		{"linked 2", "linked-2"},
		{"--edge__case--", "edge-case"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToKebabCase(tt.input); got != tt.expected {
				t.Errorf("ToKebabCase(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"id", "id"},
		{"storage-account", "storageAccount"},
		{"primaryEndpoints.blob", "primaryEndpointsBlob"},
		{"1st", "r1st"},
		{"...", "r"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToIdentifier(tt.input); got != tt.expected {
				t.Errorf("ToIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
