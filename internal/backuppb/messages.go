package backuppb

// BackupFrame is one record of the backup stream. Exactly one field is
// expected to be set.
type BackupFrame struct {
	Header     *Header
	Statement  *SQLStatement
	Preference *SharedPreference
	Attachment *Attachment
	Version    *DatabaseVersion
	End        *bool
	Avatar     *Avatar
	Sticker    *Sticker
	KeyValue   *KeyValue
}

type Header struct {
	IV      []byte
	Salt    []byte
	Version *uint32
}

type SQLStatement struct {
	Statement  *string
	Parameters []*SQLParameter
}

// SQLParameter is a statement parameter; one of its fields is set.
type SQLParameter struct {
	String  *string
	Integer *uint64
	Double  *float64
	Blob    []byte
	Null    *bool
}

type SharedPreference struct {
	File             *string
	Key              *string
	Value            *string
	BooleanValue     *bool
	StringSetValue   []string
	IsStringSetValue *bool
}

type Attachment struct {
	RowID        *uint64
	AttachmentID *uint64
	Length       *uint32
}

type DatabaseVersion struct {
	Version *uint32
}

type Avatar struct {
	Name        *string
	Length      *uint32
	RecipientID *string
}

type Sticker struct {
	RowID  *uint64
	Length *uint32
}

// KeyValue stores one typed application setting. One value field is set.
type KeyValue struct {
	Key          *string
	BlobValue    []byte
	BooleanValue *bool
	FloatValue   *float32
	IntegerValue *int32
	LongValue    *int64
	StringValue  *string
}

// Fields returns the names of the populated top level fields in field
// number order.
func (f *BackupFrame) Fields() []string {
	var out []string
	if f.Header != nil {
		out = append(out, "header")
	}
	if f.Statement != nil {
		out = append(out, "statement")
	}
	if f.Preference != nil {
		out = append(out, "preference")
	}
	if f.Attachment != nil {
		out = append(out, "attachment")
	}
	if f.Version != nil {
		out = append(out, "version")
	}
	if f.End != nil {
		out = append(out, "end")
	}
	if f.Avatar != nil {
		out = append(out, "avatar")
	}
	if f.Sticker != nil {
		out = append(out, "sticker")
	}
	if f.KeyValue != nil {
		out = append(out, "keyValue")
	}
	return out
}

// Ptr returns a pointer to v. Handy when building messages by hand.
func Ptr[T any](v T) *T {
	return &v
}
