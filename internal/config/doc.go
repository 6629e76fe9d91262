// Package config defines the format-agnostic model of a declarative build
// plan, along with the core interfaces (Loader, Converter) for loading and
// evaluating plans from various sources.
//
// A plan declares item types and steps the same way a Go module registers
// them; the hcl package turns a Model into registered steps whose bodies
// evaluate the plan's expressions. Concrete implementations of the
// interfaces are provided in separate packages.
package config
