package backuppb

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// reader walks the fields of one encoded message.
type reader struct {
	b []byte
}

func (r *reader) more() bool {
	return len(r.b) > 0
}

func (r *reader) tag() (protowire.Number, protowire.Type, error) {
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		return 0, 0, fmt.Errorf("tag: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return num, typ, nil
}

func (r *reader) bytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		return nil, fmt.Errorf("bytes: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *reader) str() (*string, error) {
	v, err := r.bytes()
	if err != nil {
		return nil, err
	}
	s := string(v)
	return &s, nil
}

func (r *reader) varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		return 0, fmt.Errorf("varint: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *reader) fixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(r.b)
	if n < 0 {
		return 0, fmt.Errorf("fixed32: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *reader) fixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(r.b)
	if n < 0 {
		return 0, fmt.Errorf("fixed64: %w", protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *reader) skip(num protowire.Number, typ protowire.Type) error {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
	}
	r.b = r.b[n:]
	return nil
}

func (r *reader) uint32() (*uint32, error) {
	v, err := r.varint()
	if err != nil {
		return nil, err
	}
	u := uint32(v)
	return &u, nil
}

func (r *reader) uint64() (*uint64, error) {
	v, err := r.varint()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *reader) bool() (*bool, error) {
	v, err := r.varint()
	if err != nil {
		return nil, err
	}
	b := protowire.DecodeBool(v)
	return &b, nil
}

// fields calls fn for every field; fn reports whether it consumed the value,
// otherwise the field is skipped as unknown.
func (r *reader) fields(fn func(num protowire.Number, typ protowire.Type) (bool, error)) error {
	for r.more() {
		num, typ, err := r.tag()
		if err != nil {
			return err
		}
		ok, err := fn(num, typ)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if !ok {
			if err := r.skip(num, typ); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unmarshal parses an encoded BackupFrame.
func (f *BackupFrame) Unmarshal(b []byte) error {
	*f = BackupFrame{}
	r := &reader{b: b}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		if num == 6 && typ == protowire.VarintType {
			v, err := r.bool()
			f.End = v
			return true, err
		}
		if typ != protowire.BytesType {
			return false, nil
		}

		var err error
		switch num {
		case 1:
			f.Header = &Header{}
			err = f.Header.unmarshal(r)
		case 2:
			f.Statement = &SQLStatement{}
			err = f.Statement.unmarshal(r)
		case 3:
			f.Preference = &SharedPreference{}
			err = f.Preference.unmarshal(r)
		case 4:
			f.Attachment = &Attachment{}
			err = f.Attachment.unmarshal(r)
		case 5:
			f.Version = &DatabaseVersion{}
			err = f.Version.unmarshal(r)
		case 7:
			f.Avatar = &Avatar{}
			err = f.Avatar.unmarshal(r)
		case 8:
			f.Sticker = &Sticker{}
			err = f.Sticker.unmarshal(r)
		case 9:
			f.KeyValue = &KeyValue{}
			err = f.KeyValue.unmarshal(r)
		default:
			return false, nil
		}
		return true, err
	})
}

// sub consumes a length-delimited field and returns a reader over it.
func sub(r *reader) (*reader, error) {
	b, err := r.bytes()
	if err != nil {
		return nil, err
	}
	return &reader{b: b}, nil
}

func (m *Header) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.IV, err = r.bytes()
		case num == 2 && typ == protowire.BytesType:
			m.Salt, err = r.bytes()
		case num == 3 && typ == protowire.VarintType:
			m.Version, err = r.uint32()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *SQLStatement) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Statement, err = r.str()
		case num == 2 && typ == protowire.BytesType:
			p := &SQLParameter{}
			if err = p.unmarshal(r); err == nil {
				m.Parameters = append(m.Parameters, p)
			}
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *SQLParameter) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.String, err = r.str()
		case num == 2 && typ == protowire.VarintType:
			m.Integer, err = r.uint64()
		case num == 3 && typ == protowire.Fixed64Type:
			var v uint64
			if v, err = r.fixed64(); err == nil {
				d := math.Float64frombits(v)
				m.Double = &d
			}
		case num == 4 && typ == protowire.BytesType:
			var v []byte
			if v, err = r.bytes(); err == nil {
				// an empty blob is still a set blob
				if v == nil {
					v = []byte{}
				}
				m.Blob = v
			}
		case num == 5 && typ == protowire.VarintType:
			m.Null, err = r.bool()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *SharedPreference) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.File, err = r.str()
		case num == 2 && typ == protowire.BytesType:
			m.Key, err = r.str()
		case num == 3 && typ == protowire.BytesType:
			m.Value, err = r.str()
		case num == 4 && typ == protowire.VarintType:
			m.BooleanValue, err = r.bool()
		case num == 5 && typ == protowire.BytesType:
			var s *string
			if s, err = r.str(); err == nil {
				m.StringSetValue = append(m.StringSetValue, *s)
			}
		case num == 6 && typ == protowire.VarintType:
			m.IsStringSetValue, err = r.bool()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *Attachment) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		if typ != protowire.VarintType {
			return false, nil
		}
		var err error
		switch num {
		case 1:
			m.RowID, err = r.uint64()
		case 2:
			m.AttachmentID, err = r.uint64()
		case 3:
			m.Length, err = r.uint32()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *DatabaseVersion) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		if num != 1 || typ != protowire.VarintType {
			return false, nil
		}
		var err error
		m.Version, err = r.uint32()
		return true, err
	})
}

func (m *Avatar) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Name, err = r.str()
		case num == 2 && typ == protowire.VarintType:
			m.Length, err = r.uint32()
		case num == 3 && typ == protowire.BytesType:
			m.RecipientID, err = r.str()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *Sticker) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		if typ != protowire.VarintType {
			return false, nil
		}
		var err error
		switch num {
		case 1:
			m.RowID, err = r.uint64()
		case 2:
			m.Length, err = r.uint32()
		default:
			return false, nil
		}
		return true, err
	})
}

func (m *KeyValue) unmarshal(parent *reader) error {
	r, err := sub(parent)
	if err != nil {
		return err
	}
	return r.fields(func(num protowire.Number, typ protowire.Type) (bool, error) {
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Key, err = r.str()
		case num == 2 && typ == protowire.BytesType:
			var v []byte
			if v, err = r.bytes(); err == nil {
				if v == nil {
					v = []byte{}
				}
				m.BlobValue = v
			}
		case num == 3 && typ == protowire.VarintType:
			m.BooleanValue, err = r.bool()
		case num == 4 && typ == protowire.Fixed32Type:
			var v uint32
			if v, err = r.fixed32(); err == nil {
				f := math.Float32frombits(v)
				m.FloatValue = &f
			}
		case num == 5 && typ == protowire.VarintType:
			var v uint64
			if v, err = r.varint(); err == nil {
				i := int32(v)
				m.IntegerValue = &i
			}
		case num == 6 && typ == protowire.VarintType:
			var v uint64
			if v, err = r.varint(); err == nil {
				i := int64(v)
				m.LongValue = &i
			}
		case num == 7 && typ == protowire.BytesType:
			m.StringValue, err = r.str()
		default:
			return false, nil
		}
		return true, err
	})
}
