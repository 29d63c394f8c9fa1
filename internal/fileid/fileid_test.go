package fileid

import (
	"strings"
	"testing"
)

func TestPathID(t *testing.T) {
	id1 := PathID("/foo/report.docx")
	if id1 != PathID("/foo/report.docx") {
		t.Error("same path should give same ID")
	}
	if !strings.HasPrefix(id1, pathPrefix) || len(id1) != len(pathPrefix)+64 {
		t.Errorf("unexpected ID shape: %q", id1)
	}
	if id1 == PathID("/foo/other.docx") {
		t.Error("different paths should give different IDs")
	}
}

func TestPathID_normalized(t *testing.T) {
	tests := []string{"/foo/bar/", "/foo/./bar", "/foo/baz/../bar"}
	want := PathID("/foo/bar")
	for _, p := range tests {
		if got := PathID(p); got != want {
			t.Errorf("PathID(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestContentID(t *testing.T) {
	a := ContentID([]byte("PK\x03\x04 one"))
	if a != ContentID([]byte("PK\x03\x04 one")) {
		t.Error("same content should give same ID")
	}
	if !strings.HasPrefix(a, contentPrefix) {
		t.Errorf("missing prefix: %q", a)
	}
	if a == ContentID([]byte("PK\x03\x04 two")) {
		t.Error("different content should give different IDs")
	}
}
