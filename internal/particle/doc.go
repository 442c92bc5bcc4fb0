// Package particle implements component-composed particle simulation over
// struct-of-arrays groups.
//
// A Kind composes Components that declare the attributes they require and
// provide; NewKind resolves their order once. A System holds the live Group
// of one Kind and runs spawn, update and draw. Kinds drawn through a
// TableRenderer pre-render every appearance into a Table built lazily, once
// per Kind, by a TableCache.
package particle
