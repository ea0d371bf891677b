package utils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"新聞の見出し", 2, "新聞..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestCollapseSpace(t *testing.T) {
	tests := map[string]string{
		"":                        "",
		"  stocks  ":              "stocks",
		"stocks \t\n rally":       "stocks rally",
		"already single spaced":   "already single spaced",
		"full\u3000width\u00a0sp": "full width sp",
	}
	for in, want := range tests {
		if got := CollapseSpace(in); got != want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", in, got, want)
		}
	}
}
