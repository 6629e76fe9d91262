// Package nodeid parses and formats build step identifiers.
//
// A step identifier names the registration origin of a step as a
// dot-separated path whose first segment is the contributing extension,
// e.g. `datasource.setup` or `http.routes[2]`. A segment may carry a
// numeric index for extensions that register several instances of the
// same step.
package nodeid
