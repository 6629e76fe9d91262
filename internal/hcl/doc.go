// Package hcl provides the concrete HCL implementation of the plan loading
// and evaluation interfaces defined in the `config` package, and registers
// the loaded plan as build steps.
//
// A plan file declares item types and steps:
//
//	item "sources" {
//	  kind    = "multi"
//	  type    = string
//	  ordered = true
//	}
//
//	step "scan" {
//	  watch = ["src/**/*.go"]
//
//	  consume "config" {}
//	  produce "sources" {
//	    modifier = "multi"
//	    values   = [for f in ["a.go", "b.go"] : "${item.config}/${f}"]
//	  }
//	}
//
// Step bodies evaluate their `name`, `value` and `values` expressions with
// the consumed items in scope as `item.<name>`: a SIMPLE item is its value
// (null when absent), a MULTI item a tuple, a NAMED item an object and an
// EMPTY item a bool telling whether it was produced. `step.id` names the
// running step. The cty standard library and `env(name)` are available.
package hcl
