package parser

import (
	"fmt"
)

// Object is the union of the PDF object kinds produced by the parser:
// Name, Ref, Dict, Array, String, Integer, Real, Boolean, Null and *Stream.
type Object interface{}

type Name string

// Ref is an indirect object reference ("N G R").
type Ref struct {
	Num, Gen int
}

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

type Dict map[Name]Object

type Array []Object

// String is a PDF string (literal or hex); always raw bytes.
type String []byte

type Integer int64

type Real float64

type Boolean bool

type Null struct{}

// Stream couples a stream dictionary with its raw, still-encoded payload.
type Stream struct {
	Dict Dict
	Raw  []byte
}

// Get resolves key from the dictionary without following references.
func (d Dict) Get(key Name) (Object, bool) {
	v, ok := d[key]
	return v, ok
}

// Number converts Integer or Real objects to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Int converts an Integer object to int.
func Int(obj Object) (int, bool) {
	if v, ok := obj.(Integer); ok {
		return int(v), true
	}
	return 0, false
}
