package pathcopy

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	j := filepath.Join
	root := string(filepath.Separator)

	testCases := []struct {
		name       string
		sourceRoot string
		destRoot   string
		path       string
		want       string
		wantErr    bool
	}{
		{"File below root", j(root, "src"), j(root, "dst"), j(root, "src", "a.txt"), j(root, "dst", "a.txt"), false},
		{"Nested path", j(root, "home", "u"), j(root, "dst"), j(root, "home", "u", "docs", "x", "y.txt"), j(root, "dst", "docs", "x", "y.txt"), false},
		{"Path equals root", j(root, "src"), j(root, "dst"), j(root, "src"), j(root, "dst"), false},
		{"Root with trailing separator", j(root, "src") + string(filepath.Separator), j(root, "dst"), j(root, "src", "a"), j(root, "dst", "a"), false},
		{"Filesystem root as source root", root, j(root, "dst"), j(root, "etc", "hosts"), j(root, "dst", "etc", "hosts"), false},
		{"Sibling with common prefix", j(root, "a", "b"), j(root, "dst"), j(root, "a", "bc", "file"), "", true},
		{"Unrelated path", j(root, "src"), j(root, "dst"), j(root, "other", "file"), "", true},
		{"Parent of root", j(root, "src", "sub"), j(root, "dst"), j(root, "src"), "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.sourceRoot, tc.destRoot, tc.path)
			if tc.wantErr {
				var resErr *ResolutionError
				if !errors.As(err, &resErr) {
					t.Fatalf("expected *ResolutionError, got %v", err)
				}
				if !errors.Is(err, ErrInternal) {
					t.Errorf("expected resolution error to match ErrInternal")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Resolve(%q, %q, %q) = %q, want %q", tc.sourceRoot, tc.destRoot, tc.path, got, tc.want)
			}
		})
	}
}
