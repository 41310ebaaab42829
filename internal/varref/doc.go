/*
Package varref provides a structured representation for references to slave
variables, based on the canonical format `slave.variable`.

The slave part is a plain identifier. Everything after the first dot is the
variable name, which is taken verbatim because slave binaries routinely use
dots, brackets and parentheses in their own names, e.g. `plant.body.v[2]` or
`ctrl.der(x)`.
*/
package varref
