// Package converter reshapes an upstream GeoJSON FeatureCollection into the
// collection submitted downstream.
//
// # Layouts
//
// The tracker layout expects at most two features per fetch, one current
// position and one historic track:
//   - Point features get their altitude appended as a third ordinate and are
//     emitted as "<prefix>-<name>-current" with course, speed and the full
//     upstream properties under "metadata".
//   - Any other geometry is the track. It is emitted as
//     "<prefix>-<name>-history" when track history is enabled, optionally
//     simplified with Ramer-Douglas-Peucker first.
//
// The passthrough layout forwards features unchanged. Features without an ID
// (never provided or removed through RemoveID) get a deterministic
// content-hash ID so the platform can deduplicate them across fetches.
//
// # Filtering
//
// When the request URL carries a "satellite" query parameter, only features
// whose name matches it case-insensitively are kept. The upstream API is
// expected to do this itself but does not do so consistently.
//
// # Errors
//
// A body that is not a FeatureCollection, or a tracker fetch with more than
// two features after filtering, fails with *ValidationError. Nothing is
// retried.
package converter
