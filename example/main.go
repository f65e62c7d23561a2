package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/registry"
	"github.com/meikuraledutech/flow/session"
)

// timerPackage is a small package with a generic timer and a debug sink.
func timerPackage() flow.Package {
	timer := flow.TypeDefinition{
		Inputs: map[string]flow.Port{
			"config": {Type: flow.Concrete("TimerConfig")},
		},
		Outputs: map[string]flow.Port{
			"token": {Type: flow.Generic("U")},
		},
		TypeParameters: []string{"U"},
		Constructors: map[string]flow.Constructor{
			"New": {
				Variant: flow.CtorNewWithArbitraryArgs,
				Arguments: []flow.Argument{{
					Type:         flow.Generic("U"),
					Name:         "token",
					Passing:      flow.PassMove,
					Construction: flow.ByConstructor(flow.JSONConstructor),
				}},
			},
		},
	}
	debug := flow.TypeDefinition{
		Inputs:         map[string]flow.Port{"input": {Type: flow.Generic("I")}},
		Outputs:        map[string]flow.Port{},
		TypeParameters: []string{"I"},
		Constructors: map[string]flow.Constructor{
			"New": {Variant: flow.CtorNewWithObserver},
		},
	}
	return flow.Package{
		Name:    "flowrs-std",
		Version: "0.1.0",
		Crates: map[string]flow.Module{
			"flowrs_std": {
				Types: map[string]flow.TypeDefinition{},
				Modules: map[string]flow.Module{
					"timer": {Types: map[string]flow.TypeDefinition{"TimerNode": timer}},
					"debug": {Types: map[string]flow.TypeDefinition{"DebugNode": debug}},
				},
			},
		},
	}
}

func main() {
	ctx := context.Background()

	packages := registry.New("")
	packages.Add(timerPackage())
	store := memory.New()

	// ── Seed an empty project ─────────────────────────────────────────
	p := flow.NewProject("demo", "1.0.0")
	if _, err := store.CreateProject(ctx, p); err != nil {
		log.Fatalf("create: %v", err)
	}

	// ── Open it for editing ───────────────────────────────────────────
	s := session.New(store, packages)
	if err := s.Open(ctx, "demo", []string{"built-in", "flowrs-std"}); err != nil {
		log.Fatalf("open: %v", err)
	}
	fmt.Println("constructable types:")
	for _, ct := range s.Constructables() {
		for _, opt := range ct.Options {
			fmt.Printf("  %s (%s)\n", ct.TypeName, opt.Kind)
		}
	}

	// ── Add and bind nodes ────────────────────────────────────────────
	timer, err := s.AddNode("flowrs_std::timer::TimerNode", "New")
	if err != nil {
		log.Fatalf("add timer: %v", err)
	}
	fmt.Printf("\n%s: U may be one of %v\n", timer.Label, timer.Candidates("U"))
	if err := timer.SetBinding("U", "i32"); err != nil {
		log.Fatalf("bind: %v", err)
	}
	timer.SetPayload(`{"value": 1}`)

	sink, err := s.AddNode("flowrs_std::debug::DebugNode", "New")
	if err != nil {
		log.Fatalf("add debug: %v", err)
	}
	if err := sink.SetBinding("I", "f64"); err != nil {
		log.Fatalf("bind: %v", err)
	}

	// ── Connect: rejected until the types agree ───────────────────────
	if _, err := s.Connect(timer.Label, "token", sink.Label, "input"); err != nil {
		fmt.Printf("connect: %v\n", err)
	}
	if err := sink.SetBinding("I", "i32"); err != nil {
		log.Fatalf("bind: %v", err)
	}
	if _, err := s.Connect(timer.Label, "token", sink.Label, "input"); err != nil {
		log.Fatalf("connect: %v", err)
	}

	// ── Save (two-phase) and read back ────────────────────────────────
	if err := s.Save(ctx); err != nil {
		log.Fatalf("save: %v", err)
	}
	saved, err := store.GetProject(ctx, "demo")
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	fmt.Println("\nsaved project:")
	printJSON(saved)
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
