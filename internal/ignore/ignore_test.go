package ignore

import "testing"

func TestList_ShouldIgnore(t *testing.T) {
	l := Compile([]string{"*.tmp", "**/node_modules/**", "build"})

	cases := []struct {
		path string
		want bool
	}{
		{"notes/a.md", false},
		{"scratch.tmp", true},
		{"deep/nested/scratch.tmp", false}, // "*" is single-segment, anchored
		{"deep/nested/node_modules/pkg/index.js", true},
		{"build", true},
		{"build/output.txt", true},
	}
	for _, tc := range cases {
		if got := l.ShouldIgnore(tc.path); got != tc.want {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestList_EmptyPatterns(t *testing.T) {
	l := Compile(nil)
	if l.ShouldIgnore("anything.md") {
		t.Fatal("empty pattern list should never ignore")
	}
}
