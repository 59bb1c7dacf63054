// Package pdfparse implements a from-scratch PDF object/xref/stream decoder
// that produces layout-aware Markdown, one string per page. It performs
// byte-level tokenising, cross-reference resolution, object-stream
// decompression, font/cmap decoding, content-stream interpretation and
// layout inference by ruling-line geometry.
package pdfparse

import "fmt"

// ObjectKind tags the dynamic type of a decoded PDF object.
type ObjectKind int

const (
	KindNull ObjectKind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindRef
	KindStream
)

// Ref is an indirect object reference "N G R".
type Ref struct {
	Num, Gen int
}

// Object is a decoded PDF object. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Object struct {
	Kind   ObjectKind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []Object
	Dict   map[string]Object
	Ref    Ref
	Stream []byte // raw (still-encoded) stream bytes; Dict holds /Length, /Filter etc.
}

func (o Object) String() string {
	switch o.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", o.Bool)
	case KindInt:
		return fmt.Sprintf("%d", o.Int)
	case KindReal:
		return fmt.Sprintf("%g", o.Real)
	case KindString:
		return string(o.Str)
	case KindName:
		return "/" + o.Name
	case KindRef:
		return fmt.Sprintf("%d %d R", o.Ref.Num, o.Ref.Gen)
	default:
		return fmt.Sprintf("<%d>", o.Kind)
	}
}

// AsFloat coerces Int/Real objects to float64.
func (o Object) AsFloat() (float64, bool) {
	switch o.Kind {
	case KindInt:
		return float64(o.Int), true
	case KindReal:
		return o.Real, true
	default:
		return 0, false
	}
}

// AsInt coerces Int/Real objects to int.
func (o Object) AsInt() (int, bool) {
	switch o.Kind {
	case KindInt:
		return int(o.Int), true
	case KindReal:
		return int(o.Real), true
	default:
		return 0, false
	}
}
