// Package task runs one ETL invocation: fetch the upstream GeoJSON feed,
// reshape it with the converter and hand the result to a submitter.
//
// Errors from any stage are returned to the caller unchanged; the task does
// no retrying and keeps no state between invocations.
package task
