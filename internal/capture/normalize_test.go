package capture

import "testing"

func TestHeadTail(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		head string
		tail string
	}{
		{"abcdef", 3, "abc", "def"},
		{"ab", 5, "ab", "ab"},
		{"", 3, "", ""},
		{"abc", 0, "", ""},
		{"héllo", 2, "hé", "lo"},
	}
	for _, tt := range tests {
		if got := Head(tt.s, tt.n); got != tt.head {
			t.Errorf("Head(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.head)
		}
		if got := Tail(tt.s, tt.n); got != tt.tail {
			t.Errorf("Tail(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.tail)
		}
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"collapses whitespace", "a \n\t b", 10, "a b"},
		{"truncated", "abcdefghijkl", 8, "abcde..."},
		{"tiny limit", "abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.in, tt.n); got != tt.want {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestCountChars(t *testing.T) {
	if got := CountChars("日本"); got != 2 {
		t.Errorf("CountChars() = %d, want 2", got)
	}
}
