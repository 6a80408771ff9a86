// Package backuppb holds the wire messages of the backup container and their
// protobuf encoding.
//
// The schema is small and fixed, so messages are read and written directly
// with protowire instead of generated code. Every optional field is a
// pointer (or a nil slice) so callers can test presence, which the record
// layer relies on to enforce that a frame carries exactly one payload.
//
// Field numbers:
//
//	BackupFrame      header=1 statement=2 preference=3 attachment=4 version=5
//	                 end=6 avatar=7 sticker=8 keyValue=9
//	Header           iv=1 salt=2 version=3
//	SQLStatement     statement=1 parameters=2
//	SQLParameter     string=1 integer=2 double=3 blob=4 null=5
//	SharedPreference file=1 key=2 value=3 booleanValue=4 stringSetValue=5 isStringSetValue=6
//	Attachment       rowId=1 attachmentId=2 length=3
//	DatabaseVersion  version=1
//	Avatar           name=1 length=2 recipientId=3
//	Sticker          rowId=1 length=2
//	KeyValue         key=1 blob=2 boolean=3 float=4 integer=5 long=6 string=7
//
// Byte fields returned by Unmarshal alias the input buffer; the caller hands
// ownership of that buffer to the parsed message.
package backuppb
