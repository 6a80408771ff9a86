package frame

import (
	"encoding/base64"
	"strconv"
)

// Value is the typed value of a KeyValue record. Implementations are
// BlobValue, BoolValue, FloatValue, IntValue and StringValue.
type Value interface {
	// String renders the value for text based sinks.
	String() string
	isValue()
}

type BlobValue []byte

type BoolValue bool

type FloatValue float32

// IntValue holds both the 32 and the 64 bit wire integers.
type IntValue int64

type StringValue string

func (v BlobValue) String() string   { return base64.StdEncoding.EncodeToString(v) }
func (v BoolValue) String() string   { return strconv.FormatBool(bool(v)) }
func (v FloatValue) String() string  { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
func (v IntValue) String() string    { return strconv.FormatInt(int64(v), 10) }
func (v StringValue) String() string { return string(v) }

func (BlobValue) isValue()   {}
func (BoolValue) isValue()   {}
func (FloatValue) isValue()  {}
func (IntValue) isValue()    {}
func (StringValue) isValue() {}
