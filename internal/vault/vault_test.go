package vault

import (
	"errors"
	"testing"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		ref      string
		wantPath string
		wantKey  string
		wantErr  bool
	}{
		{ref: "secret/inbox#jwt_secret", wantPath: "secret/inbox", wantKey: "jwt_secret"},
		{ref: "/kv/apps/inbox/#admin", wantPath: "kv/apps/inbox", wantKey: "admin"},
		{ref: "secret/inbox", wantErr: true},
		{ref: "#key", wantErr: true},
		{ref: "secret/inbox#", wantErr: true},
	}
	for _, tc := range cases {
		path, key, err := ParseReference(tc.ref)
		if tc.wantErr {
			if !errors.Is(err, ErrBadReference) {
				t.Errorf("ParseReference(%q) err = %v, want ErrBadReference", tc.ref, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseReference(%q): %v", tc.ref, err)
		}
		if path != tc.wantPath || key != tc.wantKey {
			t.Errorf("ParseReference(%q) = %q, %q", tc.ref, path, key)
		}
	}
}

func TestSplitMount(t *testing.T) {
	mount, rel := splitMount("secret/apps/inbox")
	if mount != "secret" || rel != "apps/inbox" {
		t.Fatalf("splitMount = %q, %q", mount, rel)
	}
	mount, rel = splitMount("secret")
	if mount != "secret" || rel != "" {
		t.Fatalf("splitMount single = %q, %q", mount, rel)
	}
}
