// Package cli provides the apicatalog command-line interface.
//
// # Overview
//
// This package implements the `apicatalog` CLI for compiling OpenAPI
// descriptions locally, inspecting the entity catalog, resolving join trees
// and talking to a running apicatalog server.
//
// # Commands
//
// compile: Compile descriptions into catalog JSON
//
//	apicatalog compile -out ./catalogs ./specs
//	apicatalog compile -indent petstore.yaml
//
// validate: Report which descriptions fail to compile, and where
//
//	apicatalog validate ./specs
//
// catalog: Print the kinds, their paths and fields
//
//	apicatalog catalog
//	apicatalog catalog -kind Property
//	apicatalog catalog -edges
//
// joins: Resolve a join tree
//
//	apicatalog joins -root Service:s -join s.Request:r -join r.Response
//
// watch: Recompile a directory on change
//
//	apicatalog watch -dir ./specs -out ./catalogs -delay 2s
//
// push / pull: Store descriptions on a server and fetch them back
//
//	apicatalog push -server http://localhost:8080 petstore.yaml
//	apicatalog pull -id 3f2a... -out petstore.catalog.json
//
// Limits: compile, validate and watch accept -max-variants and -max-depth.
//
// Output: results are written to stdout; progress and errors are logged to
// stderr through logrus.
package cli
