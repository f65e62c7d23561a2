// Package flowtest provides package fixtures shared by tests.
package flowtest

import "github.com/meikuraledutech/flow"

// Type names in the fixture catalog.
const (
	Timer       = "flowrs_std::timer::TimerNode"
	TimerConfig = "flowrs_std::timer::TimerConfig"
	Value       = "flowrs_std::value::ValueNode"
	Debug       = "flowrs_std::debug::DebugNode"
	Add         = "flowrs_std::math::ops::AddNode"
	Pair        = "flowrs_std::math::ops::PairNode"
)

// StdPackage is the package holding the fixture node types.
const StdPackage = "flowrs-std"

func primitive(ctors map[string]flow.Constructor) flow.TypeDefinition {
	return flow.TypeDefinition{Inputs: map[string]flow.Port{}, Outputs: map[string]flow.Port{}, Constructors: ctors}
}

// BuiltIn returns a primitives package: i32, f64 and bool can be built from
// JSON, char only from its default.
func BuiltIn() flow.Package {
	jsonAndDefault := map[string]flow.Constructor{
		"Default":            {Variant: flow.CtorFromDefault},
		flow.JSONConstructor: {Variant: flow.CtorFromJSON},
	}
	return flow.Package{
		Name:    "built-in",
		Version: "1.0.0",
		Crates: map[string]flow.Module{
			"primitives": {Types: map[string]flow.TypeDefinition{
				"i32":  primitive(jsonAndDefault),
				"f64":  primitive(jsonAndDefault),
				"bool": primitive(jsonAndDefault),
				"char": primitive(map[string]flow.Constructor{"Default": {Variant: flow.CtorFromDefault}}),
			}},
		},
	}
}

func jsonArg(param string) flow.Argument {
	return flow.Argument{
		Type:         flow.Generic(param),
		Name:         "value",
		Passing:      flow.PassMove,
		Construction: flow.ByConstructor(flow.JSONConstructor),
	}
}

// Std returns the node type package.
func Std() flow.Package {
	timer := flow.TypeDefinition{
		Inputs:         map[string]flow.Port{"config": {Type: flow.Concrete(TimerConfig)}},
		Outputs:        map[string]flow.Port{"token": {Type: flow.Generic("U")}},
		TypeParameters: []string{"U"},
		Constructors: map[string]flow.Constructor{
			"New": {
				Variant:      flow.CtorNewWithArbitraryArgs,
				FunctionName: "new",
				Arguments:    []flow.Argument{jsonArg("U")},
			},
			"Default": {Variant: flow.CtorFromDefault},
		},
	}
	value := flow.TypeDefinition{
		Inputs:         map[string]flow.Port{},
		Outputs:        map[string]flow.Port{"output": {Type: flow.Generic("I")}},
		TypeParameters: []string{"I"},
		Constructors: map[string]flow.Constructor{
			"New": {Variant: flow.CtorNewWithArbitraryArgs, Arguments: []flow.Argument{jsonArg("I")}},
		},
	}
	debug := flow.TypeDefinition{
		Inputs:         map[string]flow.Port{"input": {Type: flow.Generic("I")}},
		Outputs:        map[string]flow.Port{"output": {Type: flow.Generic("I")}},
		TypeParameters: []string{"I"},
		Constructors: map[string]flow.Constructor{
			"New": {Variant: flow.CtorNewWithObserver},
		},
	}
	add := flow.TypeDefinition{
		Inputs: map[string]flow.Port{
			"a": {Type: flow.Concrete("i32")},
			"b": {Type: flow.Concrete("i32")},
		},
		Outputs: map[string]flow.Port{"out": {Type: flow.Concrete("i32")}},
		Constructors: map[string]flow.Constructor{
			"New": {Variant: flow.CtorNew},
		},
	}
	pair := flow.TypeDefinition{
		Inputs: map[string]flow.Port{
			"left":  {Type: flow.Generic("A")},
			"right": {Type: flow.Generic("B")},
		},
		Outputs: map[string]flow.Port{
			"out": {Type: flow.Concrete("Pair", flow.Generic("A"), flow.Generic("B"))},
		},
		TypeParameters: []string{"A", "B"},
		Constructors: map[string]flow.Constructor{
			"New": {Variant: flow.CtorNew},
		},
	}
	timerConfig := flow.TypeDefinition{
		Inputs:  map[string]flow.Port{},
		Outputs: map[string]flow.Port{},
		Constructors: map[string]flow.Constructor{
			flow.JSONConstructor: {Variant: flow.CtorFromJSON},
		},
	}

	return flow.Package{
		Name:    StdPackage,
		Version: "0.1.0",
		Crates: map[string]flow.Module{
			"flowrs_std": {
				Types: map[string]flow.TypeDefinition{},
				Modules: map[string]flow.Module{
					"timer": {Types: map[string]flow.TypeDefinition{"TimerNode": timer, "TimerConfig": timerConfig}},
					"value": {Types: map[string]flow.TypeDefinition{"ValueNode": value}},
					"debug": {Types: map[string]flow.TypeDefinition{"DebugNode": debug}},
					"math": {Modules: map[string]flow.Module{
						"ops": {Types: map[string]flow.TypeDefinition{"AddNode": add, "PairNode": pair}},
					}},
				},
			},
		},
	}
}

// Packages returns BuiltIn and Std.
func Packages() []flow.Package {
	return []flow.Package{BuiltIn(), Std()}
}

// Active is the active package set selecting every fixture type.
func Active() []string {
	return []string{"built-in", StdPackage}
}

// Project returns a valid document over the fixture catalog: a value node
// feeding a debug node, both bound to i32.
func Project(name string) *flow.Project {
	p := flow.NewProject(name, "1.0.0")
	p.Packages = []flow.PackageRef{{Name: StdPackage, Version: "0.1.0"}}
	p.Flow.Nodes = map[string]flow.NodeModel{
		"value": {NodeType: Value, TypeParameters: map[string]string{"I": "i32"}, Constructor: "New"},
		"debug": {NodeType: Debug, TypeParameters: map[string]string{"I": "i32"}, Constructor: "New"},
	}
	p.Flow.Connections = []flow.ConnectionModel{
		{FromNode: "value", FromOutput: "output", ToNode: "debug", ToInput: "input"},
	}
	p.Flow.Data = map[string]flow.NodeData{
		"value": {Value: []byte(`{"n":42}`)},
	}
	return p
}
