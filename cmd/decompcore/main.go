// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"decompcore/internal/fixture"
	"decompcore/internal/opt"
	"decompcore/internal/passmgr"
	"decompcore/internal/proc"
	"decompcore/internal/settings"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: decompcore <fixture.yaml>")
		os.Exit(1)
	}

	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	p, err := fixture.Parse(source)
	if err != nil {
		color.Red("❌ %s: %s", path, err)
		os.Exit(1)
	}

	m := newManager()
	if err := m.RunPipeline(p, nil); err != nil {
		color.Red("❌ %s did not reach final-done: %s", p.Name, err)
		os.Exit(1)
	}

	printProcedure(p)
	color.Green("✅ %s reached %s", p.Name, p.Status())
}

// newManager registers the default optimization group in the same order
// a real decoder-driven run would, so running a fixture through this
// driver exercises the exact pipeline spec.md §4.8 describes.
func newManager() *passmgr.Manager {
	s := settings.Default()
	m := passmgr.NewManager(s)
	m.Register(opt.CopyConstPropagation())
	m.Register(opt.TypePropagation())
	m.Register(opt.DeadCodeElimination())
	m.Register(opt.EllipsisProcessing())
	m.Register(opt.ParameterInference(s.CallingConvention))
	m.Register(opt.ReturnInference(s.CallingConvention))
	m.Register(opt.PreservationAnalysis(opt.NewPreservationCache()))
	return m
}

// printProcedure renders the locals-only IR left behind once
// ssadestroy.Destroy has run: every fragment, in creation order, with
// its final statement text.
func printProcedure(p *proc.Procedure) {
	fmt.Printf("%s(", p.Name)
	for i, param := range p.Params {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(param.String())
	}
	fmt.Println("):")

	for _, f := range p.CFG.Fragments() {
		fmt.Printf("  %s:\n", f.Label)
		for _, s := range f.Stmts {
			fmt.Printf("    %s\n", s.String())
		}
	}

	if len(p.SymbolMap) > 0 {
		fmt.Println("  symbols:")
		for key, name := range p.SymbolMap {
			fmt.Printf("    %s -> %s\n", key, name)
		}
	}
}
