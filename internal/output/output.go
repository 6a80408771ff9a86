package output

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/signalbackup/internal/logging"
)

// Type selects a sink implementation.
type Type string

const (
	TypeRaw  Type = "raw"
	TypeCSV  Type = "csv"
	TypeNone Type = "none"
)

// Types lists the accepted sink types.
var Types = []Type{TypeRaw, TypeCSV, TypeNone}

// ParseType accepts a sink type name in any case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown output type %q (want one of %v)", s, Types)
}

type Options struct {
	// Force allows writing into an existing output directory.
	Force bool
	// BatchSize is the number of statements per transaction for the raw sink.
	BatchSize int
	Logger    logging.Logger
}

func (o Options) logger() logging.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

// New builds the sink of type t writing below dir.
func New(t Type, dir string, opts Options) (Sink, error) {
	switch t {
	case TypeRaw:
		return NewRaw(dir, opts)
	case TypeCSV:
		return NewCSV(dir, opts)
	case TypeNone:
		return NewNone(opts), nil
	}
	return nil, fmt.Errorf("unknown output type %q", t)
}
