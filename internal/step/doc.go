// Package step describes build steps: what they consume, what they produce
// and the body that turns one into the other. Descriptors are inert data;
// nothing runs until the executor dispatches them.
package step
