package graph

import (
	"strings"
	"testing"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

func testCatalog() pkginfo.Catalog {
	c := pkginfo.Catalog{}
	for _, p := range []*pkginfo.Package{
		{Name: "ea-apache24", DisplayName: "apache24"},
		{
			Name:        "ea-apache24-mod_cgid",
			DisplayName: "mod_cgid",
			Requires: []pkginfo.Requirement{
				pkginfo.Single("ea-apache24"),
				pkginfo.AnyOf("ea-apache24-mod_mpm_event", "ea-apache24-mod_mpm_worker"),
			},
			Conflicts: []string{"ea-apache24-mod_cgi"},
		},
		{Name: "ea-apache24-mod_cgi", Conflicts: []string{"ea-apache24-mod_cgid"}},
		{Name: "ea-apache24-mod_mpm_event"},
		{Name: "ea-apache24-mod_mpm_worker"},
		{Name: "ea-php81", Requires: []pkginfo.Requirement{pkginfo.Single("ea-apache24"), pkginfo.Single("glibc")}},
	} {
		c.Add(p)
	}
	return c
}

func TestToDOT(t *testing.T) {
	c := testCatalog()
	c.SetSelected([]string{"ea-apache24"})
	dot := ToDOT(c, Options{})

	wantLines := []string{
		`"ea-apache24" [label="ea-apache24", fillcolor=lightblue];`,
		`"ea-php81" [label="ea-php81"];`,
		`"ea-apache24-mod_cgid" -> "ea-apache24";`,
		`"ea-apache24-mod_cgid|or1" [label="or", shape=diamond`,
		`"ea-apache24-mod_cgid" -> "ea-apache24-mod_cgid|or1";`,
		`"ea-apache24-mod_cgid|or1" -> "ea-apache24-mod_mpm_event" [style=dashed];`,
		`"ea-apache24-mod_cgid|or1" -> "ea-apache24-mod_mpm_worker" [style=dashed];`,
		`"ea-apache24-mod_cgi" -> "ea-apache24-mod_cgid" [color=red, style=dotted, dir=none];`,
	}
	for _, want := range wantLines {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}

	if n := strings.Count(dot, "color=red"); n != 1 {
		t.Errorf("conflict edges = %d, want 1 (symmetric pair drawn once)", n)
	}
	if strings.Contains(dot, "glibc") {
		t.Error("packages outside the catalog should not be drawn")
	}
	if !strings.HasPrefix(dot, "digraph G {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("DOT not a digraph:\n%s", dot)
	}
}

func TestToDOT_Roots(t *testing.T) {
	dot := ToDOT(testCatalog(), Options{Roots: []string{"ea-apache24-mod_cgid"}, DisplayNames: true, NoConflicts: true})

	for _, want := range []string{
		`"ea-apache24-mod_cgid" [label="mod_cgid"];`,
		`"ea-apache24" [label="apache24"];`,
		`"ea-apache24-mod_mpm_worker"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	for _, unwanted := range []string{`"ea-php81"`, `"ea-apache24-mod_cgi"`, "color=red"} {
		if strings.Contains(dot, unwanted) {
			t.Errorf("DOT should not contain %q\n%s", unwanted, dot)
		}
	}
}

func TestToDOT_Deterministic(t *testing.T) {
	c := testCatalog()
	first := ToDOT(c, Options{})
	for i := 0; i < 5; i++ {
		if got := ToDOT(c, Options{}); got != first {
			t.Fatal("ToDOT output differs between runs")
		}
	}
}
