// Package formatter serializes output feature collections.
package formatter
