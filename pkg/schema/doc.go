// Package schema holds the versioned JSON Schemas for the payloads exchanged
// with the plan generator and the decision oracle.
//
// Schemas are embedded in the binary and compiled once. Adapters validate a
// raw payload before decoding it, so a malformed reply is reported with the
// schema location that rejected it:
//
//	if err := schema.ValidatePlan(raw); err != nil {
//	    // reject the reply
//	}
//
// The current wire version is v1.
package schema
