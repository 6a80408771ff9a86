// Package frame defines the typed records of a backup stream and the codec
// that turns a parsed wire frame into exactly one of them.
package frame

// Kind names a record variant. It is used for logging and metrics labels.
type Kind string

const (
	KindHeader     Kind = "header"
	KindStatement  Kind = "statement"
	KindPreference Kind = "preference"
	KindAttachment Kind = "attachment"
	KindAvatar     Kind = "avatar"
	KindSticker    Kind = "sticker"
	KindVersion    Kind = "version"
	KindKeyValue   Kind = "key_value"
	KindEnd        Kind = "end"
)

// Record is one decoded frame. The set of implementations is closed.
type Record interface {
	Kind() Kind
	isRecord()
}

// PayloadRecord is a record announcing a payload block that follows it in
// the stream.
type PayloadRecord interface {
	Record
	// PayloadLength is the number of ciphertext bytes in the block.
	PayloadLength() uint32
	// SetPayload attaches the decrypted block.
	SetPayload(data []byte)
}

type Header struct {
	Salt    []byte
	IV      []byte
	Version uint32
}

// Statement is a SQL statement with positional parameters. Each parameter
// is one of string, int64, float64, []byte or nil, so the slice can be
// passed straight to database/sql.
type Statement struct {
	SQL    string
	Params []any
}

type Preference struct {
	File  string
	Key   string
	Value string
	// BoolValue is set when the preference stores a boolean.
	BoolValue *bool
	// StringSet is set when the preference stores a set of strings.
	StringSet []string
}

type Attachment struct {
	Length       uint32
	AttachmentID uint64
	RowID        uint64
	Data         []byte
}

type Avatar struct {
	Length      uint32
	Name        string
	RecipientID string
	Data        []byte
}

type Sticker struct {
	Length uint32
	RowID  uint64
	Data   []byte
}

type Version struct {
	Version uint32
}

type KeyValue struct {
	Key   string
	Value Value
}

type End struct{}

func (*Header) Kind() Kind     { return KindHeader }
func (*Statement) Kind() Kind  { return KindStatement }
func (*Preference) Kind() Kind { return KindPreference }
func (*Attachment) Kind() Kind { return KindAttachment }
func (*Avatar) Kind() Kind     { return KindAvatar }
func (*Sticker) Kind() Kind    { return KindSticker }
func (*Version) Kind() Kind    { return KindVersion }
func (*KeyValue) Kind() Kind   { return KindKeyValue }
func (*End) Kind() Kind        { return KindEnd }

func (*Header) isRecord()     {}
func (*Statement) isRecord()  {}
func (*Preference) isRecord() {}
func (*Attachment) isRecord() {}
func (*Avatar) isRecord()     {}
func (*Sticker) isRecord()    {}
func (*Version) isRecord()    {}
func (*KeyValue) isRecord()   {}
func (*End) isRecord()        {}

func (a *Attachment) PayloadLength() uint32 { return a.Length }
func (a *Avatar) PayloadLength() uint32     { return a.Length }
func (s *Sticker) PayloadLength() uint32    { return s.Length }

func (a *Attachment) SetPayload(data []byte) { a.Data = data }
func (a *Avatar) SetPayload(data []byte)     { a.Data = data }
func (s *Sticker) SetPayload(data []byte)    { s.Data = data }
