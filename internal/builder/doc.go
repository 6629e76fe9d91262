/*
Package builder turns the registered step descriptors into a validated,
ready-to-run *Graph.

Construction is a multi-phase process. Every phase records its findings as
diagnostics and keeps going, so a single invocation reports every
configuration error at once instead of the first one:

 1. Selection: when the host asks for specific target items, only the steps
    transitively needed to produce them are kept. Weak produces do not pull a
    step in.

 2. Structural checks: every step must have a body, reference only concrete
    leaf item types and use modifiers that fit the kinds of those items. A
    step without consumes and produces is legal but cannot be ordered, which
    is worth a warning.

 3. Classification: an item type is registered the first time a step refers
    to it. Any later reference with a different kind or payload is a
    re-classification error naming both steps.

 4. Producers: a FINAL producer seals its item against every other producer.
    Two producers of one SIMPLE item are an error unless exactly one of them
    is flagged as override, in which case the other's output for that item
    is shadowed.

 5. Consumers: every REQUIRED consume needs a producer. OPTIONAL and
    MULTI-REQUIRED consumes accept none.

 6. Linking: each producer gets an edge to each consumer of its items, and
    the resulting step graph is searched for cycles, each reported with its
    full path.

Only a graph without error diagnostics is returned; otherwise the caller gets
a *diag.ValidationError and execution must not start.
*/
package builder
