package backuppb

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, *v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	return appendVarint(b, num, protowire.EncodeBool(*v))
}

func appendUint32(b []byte, num protowire.Number, v *uint32) []byte {
	if v == nil {
		return b
	}
	return appendVarint(b, num, uint64(*v))
}

func appendUint64(b []byte, num protowire.Number, v *uint64) []byte {
	if v == nil {
		return b
	}
	return appendVarint(b, num, *v)
}

// Marshal encodes the frame in field number order.
func (f *BackupFrame) Marshal() []byte {
	var b []byte
	if f.Header != nil {
		b = appendBytes(b, 1, f.Header.marshal())
	}
	if f.Statement != nil {
		b = appendBytes(b, 2, f.Statement.marshal())
	}
	if f.Preference != nil {
		b = appendBytes(b, 3, f.Preference.marshal())
	}
	if f.Attachment != nil {
		b = appendBytes(b, 4, f.Attachment.marshal())
	}
	if f.Version != nil {
		b = appendBytes(b, 5, appendUint32(nil, 1, f.Version.Version))
	}
	b = appendBool(b, 6, f.End)
	if f.Avatar != nil {
		b = appendBytes(b, 7, f.Avatar.marshal())
	}
	if f.Sticker != nil {
		b = appendBytes(b, 8, f.Sticker.marshal())
	}
	if f.KeyValue != nil {
		b = appendBytes(b, 9, f.KeyValue.marshal())
	}
	return b
}

func (m *Header) marshal() []byte {
	var b []byte
	if m.IV != nil {
		b = appendBytes(b, 1, m.IV)
	}
	if m.Salt != nil {
		b = appendBytes(b, 2, m.Salt)
	}
	return appendUint32(b, 3, m.Version)
}

func (m *SQLStatement) marshal() []byte {
	b := appendString(nil, 1, m.Statement)
	for _, p := range m.Parameters {
		b = appendBytes(b, 2, p.marshal())
	}
	return b
}

func (m *SQLParameter) marshal() []byte {
	b := appendString(nil, 1, m.String)
	b = appendUint64(b, 2, m.Integer)
	if m.Double != nil {
		b = protowire.AppendTag(b, 3, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(*m.Double))
	}
	if m.Blob != nil {
		b = appendBytes(b, 4, m.Blob)
	}
	return appendBool(b, 5, m.Null)
}

func (m *SharedPreference) marshal() []byte {
	b := appendString(nil, 1, m.File)
	b = appendString(b, 2, m.Key)
	b = appendString(b, 3, m.Value)
	b = appendBool(b, 4, m.BooleanValue)
	for i := range m.StringSetValue {
		b = appendString(b, 5, &m.StringSetValue[i])
	}
	return appendBool(b, 6, m.IsStringSetValue)
}

func (m *Attachment) marshal() []byte {
	b := appendUint64(nil, 1, m.RowID)
	b = appendUint64(b, 2, m.AttachmentID)
	return appendUint32(b, 3, m.Length)
}

func (m *Avatar) marshal() []byte {
	b := appendString(nil, 1, m.Name)
	b = appendUint32(b, 2, m.Length)
	return appendString(b, 3, m.RecipientID)
}

func (m *Sticker) marshal() []byte {
	b := appendUint64(nil, 1, m.RowID)
	return appendUint32(b, 2, m.Length)
}

func (m *KeyValue) marshal() []byte {
	b := appendString(nil, 1, m.Key)
	if m.BlobValue != nil {
		b = appendBytes(b, 2, m.BlobValue)
	}
	b = appendBool(b, 3, m.BooleanValue)
	if m.FloatValue != nil {
		b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*m.FloatValue))
	}
	if m.IntegerValue != nil {
		// int32 is sign-extended to 64 bits on the wire
		b = appendVarint(b, 5, uint64(int64(*m.IntegerValue)))
	}
	if m.LongValue != nil {
		b = appendVarint(b, 6, uint64(*m.LongValue))
	}
	return appendString(b, 7, m.StringValue)
}
