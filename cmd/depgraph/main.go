// Command depgraph renders this module's package dependency graph as
// Graphviz DOT. Grounded in biscuit's misc/depgraph, which shells out to
// `go mod graph` and prints its module-level edges verbatim; this nucleus's
// packages are stitched together with bare-name `replace` directives
// instead of versioned module paths, so `go mod graph` only ever prints
// "nucleus -> arch@v0.0.0"-shaped noise. golang.org/x/tools/go/packages
// loads the real package-level import graph instead, resolving every
// replace along the way.
package main

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/tools/go/packages"
)

func main() {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading packages:", err)
		os.Exit(1)
	}

	var names []string
	edges := map[string][]string{}
	for _, p := range pkgs {
		if len(p.Errors) > 0 {
			for _, e := range p.Errors {
				fmt.Fprintln(os.Stderr, e)
			}
		}
		names = append(names, p.PkgPath)
		for imp := range p.Imports {
			edges[p.PkgPath] = append(edges[p.PkgPath], imp)
		}
	}
	sort.Strings(names)

	fmt.Println("digraph deps {")
	for _, n := range names {
		dests := edges[n]
		sort.Strings(dests)
		for _, d := range dests {
			fmt.Printf("\t%q -> %q;\n", n, d)
		}
	}
	fmt.Println("}")
}
