package cache

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips scheme and www", "https://www.example.com/movies", "example.com/movies"},
		{"replaces numeric segment", "https://example.com/movies/20/detail", "example.com/movies/*/detail"},
		{"http scheme", "http://example.com/page/1", "example.com/page/*"},
		{"no scheme", "example.com/a/2/b", "example.com/a/*/b"},
		{"multiple numeric segments", "example.com/1/2/3", "example.com/*/*/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Truncates(t *testing.T) {
	long := "example.com/"
	for i := 0; i < 600; i++ {
		long += "a"
	}
	got := NormalizeURL(long)
	if len(got) != 512 {
		t.Errorf("expected truncation to 512 chars, got %d", len(got))
	}
}
