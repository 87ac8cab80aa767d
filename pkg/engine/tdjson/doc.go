// Package tdjson binds the native libtdjson shared library through cgo. The
// binding is compiled only with the "tdjson" build tag so the rest of the
// module builds without the native library installed; without the tag every
// operation reports engine.ErrUnavailable.
package tdjson
