package youtube

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=120", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"not a url", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ExtractVideoID(tc.input)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("%q: expected %q, got %q", tc.input, tc.want, got)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error, got %q", tc.input, got)
		}
	}
}

func TestWatchURL(t *testing.T) {
	if got := WatchURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected url %q", got)
	}
}
