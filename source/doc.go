// Package source fetches the upstream GeoJSON document for one invocation.
//
// The request URL is the configured URL with every configured query parameter
// appended in order, and the configured headers are sent verbatim. The client
// performs exactly one GET; retries are left to whatever invokes the task.
package source
