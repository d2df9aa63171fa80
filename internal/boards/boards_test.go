package boards

import "testing"

func TestLookupFallsBackToGeneric(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		want string
	}{
		{"generic", "generic"},
		{"GENERIC", "generic"},
		{"unknown-board", "generic"},
		{"", "generic"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Lookup(tc.name); got.Name != tc.want {
				t.Fatalf("Lookup(%q).Name = %q, want %q", tc.name, got.Name, tc.want)
			}
		})
	}
}

func TestIsBoardURL(t *testing.T) {
	t.Parallel()
	d := Descriptor{Domain: "boards.example.com"}
	if !d.IsBoardURL("https://boards.example.com/search?q=go") {
		t.Fatal("expected board url to match")
	}
	if d.IsBoardURL("https://ats.example.com/apply") {
		t.Fatal("expected foreign url not to match")
	}
	var empty Descriptor
	if empty.IsBoardURL("https://boards.example.com") {
		t.Fatal("empty domain must never match")
	}
}

func TestSampleSearchFiltersByTerms(t *testing.T) {
	t.Parallel()
	all := SampleSearch(nil, "")
	if len(all) == 0 {
		t.Fatal("expected sample postings")
	}
	backend := SampleSearch([]string{"backend"}, "")
	if len(backend) != 1 || backend[0].Company != "Northwind Systems" {
		t.Fatalf("backend search = %+v", backend)
	}
	none := SampleSearch([]string{"haskell"}, "")
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}
