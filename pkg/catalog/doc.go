// Package catalog declares the catapult record layouts as builder schemas
// and wraps them in typed builders.
//
// Every schema here is plain data. Adding a record type means declaring a
// new schema with the builder package; nothing in the engine changes.
package catalog
