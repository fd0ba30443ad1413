// Package mmfile maps the memory that backs a frame region: anonymous memory
// for scratch regions, or a shared file mapping for a persistent RAM image.
package mmfile
