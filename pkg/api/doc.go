// Package api serves the description compiler, the description store and the
// catalog over HTTP.
//
// Routes:
//
//	POST   /descriptions                 compile and store, 201 {"id": "..."}
//	GET    /descriptions                 list stored descriptions
//	GET    /descriptions/{id}            the original document
//	GET    /descriptions/{id}/compiled   the compiled metadata object
//	DELETE /descriptions/{id}
//	POST   /compile                      compile without storing
//	GET    /catalog                      kinds, edges and index paths
//	GET    /catalog/{kind}
//	POST   /joins                        resolve a join tree
//	POST   /results/flatten              post-process query result rows
//
// Descriptions are accepted as JSON or YAML. Errors caused by the submitted
// document answer 400 with the failure kind and, where known, the JSON pointer
// of the offending value.
package api
