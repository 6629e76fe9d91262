package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Items  []*itemBlock `hcl:"item,block"`
	Steps  []*stepBlock `hcl:"step,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type itemBlock struct {
	Name    string `hcl:"name,label"`
	Kind    string `hcl:"kind"`
	Ordered bool   `hcl:"ordered,optional"`
	// Remain carries the optional `type` expression, which is not a value.
	Remain hcl.Body `hcl:",remain"`
}

type stepBlock struct {
	ID       string          `hcl:"id,label"`
	Override bool            `hcl:"override,optional"`
	Watch    []string        `hcl:"watch,optional"`
	Consumes []*consumeBlock `hcl:"consume,block"`
	Produces []*produceBlock `hcl:"produce,block"`
	Body     hcl.Body        `hcl:",body"`

	// source is the text of the block body, filled in by the loader.
	source []byte
}

type consumeBlock struct {
	Item     string `hcl:"item,label"`
	Modifier string `hcl:"modifier,optional"`
}

// produceBlock keeps its attributes raw: whether name, value or values is
// set at all decides what the step produces.
type produceBlock struct {
	Item string   `hcl:"item,label"`
	Body hcl.Body `hcl:",remain"`
}
