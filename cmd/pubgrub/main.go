// Command pubgrub resolves a declared package universe and prints either
// the chosen version for every package or the derivation of why no choice
// exists.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	pubgrub "github.com/WFT/pubgrub"
)

func main() {
	var (
		universe = flag.String("universe", "", "path to the YAML package universe")
		level    = flag.String("log-level", "warning", "logrus level for solver diagnostics")
		trace    = flag.BoolP("trace", "t", false, "stream every solver step at debug level")
		prefetch = flag.Bool("prefetch", false, "hint the whole universe to the provider up front")
	)
	flag.Parse()

	l := logrus.New()
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pubgrub: %s\n", err)
		os.Exit(2)
	}
	l.SetLevel(lvl)

	if *universe == "" {
		fmt.Fprintln(os.Stderr, "pubgrub: --universe is required")
		flag.Usage()
		os.Exit(2)
	}

	registry, err := pubgrub.LoadRegistry(*universe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pubgrub: %s\n", err)
		os.Exit(2)
	}

	var delegate pubgrub.Delegate
	if *trace {
		l.SetLevel(logrus.DebugLevel)
		delegate = &pubgrub.LogDelegate{Logger: l}
	}

	var pins []pubgrub.PackageConstraint
	if *prefetch {
		for _, pkg := range registry.Packages() {
			if pkg == registry.Root() {
				continue
			}
			pins = append(pins, pubgrub.PackageConstraint{
				Package:     pkg,
				Requirement: pubgrub.VersionSetRequirement(pubgrub.AnyVersions()),
			})
		}
	}

	solver := pubgrub.NewSolver(registry, delegate, l)
	bindings, err := solver.Solve(registry.Root(), pins)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, b := range bindings {
		fmt.Println(b)
	}
}
