// Package graph renders a package catalog's dependency structure as a
// Graphviz diagram.
//
// Plain requirements are solid edges. Each OR-group becomes a small "or"
// diamond with dashed edges to its members, so it is visible that any one
// member satisfies it. Conflicts are red dotted edges without arrowheads.
//
//	dot := graph.ToDOT(catalog, graph.Options{Roots: []string{"ea-php81"}})
//	svg, err := graph.RenderSVG(ctx, dot)
package graph

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// Options configures diagram generation. Packages flagged Selected in the
// catalog are drawn filled.
type Options struct {
	// Roots limits the diagram to these packages and everything they require,
	// directly or through an OR-group. Empty means the whole catalog.
	Roots []string

	// NoConflicts omits conflict edges.
	NoConflicts bool

	// DisplayNames labels nodes with display names instead of package names.
	DisplayNames bool
}

// ToDOT converts the catalog to Graphviz DOT source.
func ToDOT(c pkginfo.Catalog, opts Options) string {
	names := nodes(c, opts.Roots)
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, name := range names {
		p := c[name]
		label := name
		if opts.DisplayNames && p.DisplayName != "" {
			label = p.DisplayName
		}
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if p.Selected {
			attrs = append(attrs, "fillcolor=lightblue")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, name := range names {
		group := 0
		for _, r := range c[name].Requires {
			if !r.IsGroup() {
				if in[r.Name] {
					fmt.Fprintf(&buf, "  %q -> %q;\n", name, r.Name)
				}
				continue
			}
			members := present(r.AnyOf, in)
			if len(members) == 0 {
				continue
			}
			group++
			or := fmt.Sprintf("%s|or%d", name, group)
			fmt.Fprintf(&buf, "  %q [label=\"or\", shape=diamond, style=filled, fillcolor=lightyellow, fontsize=10];\n", or)
			fmt.Fprintf(&buf, "  %q -> %q;\n", name, or)
			for _, m := range members {
				fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", or, m)
			}
		}
	}

	if !opts.NoConflicts {
		seen := make(map[[2]string]bool)
		for _, name := range names {
			for _, other := range c[name].Conflicts {
				if !in[other] {
					continue
				}
				pair := [2]string{name, other}
				if other < name {
					pair = [2]string{other, name}
				}
				if seen[pair] {
					continue
				}
				seen[pair] = true
				fmt.Fprintf(&buf, "  %q -> %q [color=red, style=dotted, dir=none];\n", pair[0], pair[1])
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodes returns the sorted package names reachable from roots, or every
// catalog package when roots is empty.
func nodes(c pkginfo.Catalog, roots []string) []string {
	if len(roots) == 0 {
		return c.Names()
	}
	seen := make(map[string]bool)
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p, ok := c[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		for _, r := range p.Requires {
			if r.IsGroup() {
				stack = append(stack, r.AnyOf...)
			} else {
				stack = append(stack, r.Name)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func present(names []string, in map[string]bool) []string {
	var out []string
	for _, n := range names {
		if in[n] {
			out = append(out, n)
		}
	}
	return out
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
