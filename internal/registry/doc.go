// Package registry collects build step descriptors before the graph is built.
//
// Extensions contribute steps by implementing Module and calling the
// registry's declarative API from Register. Registration only records
// descriptors; all cross-step checks (missing producers, conflicting
// classifications, cycles) happen later in package builder, once every
// module has been discovered.
package registry
