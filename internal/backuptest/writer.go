// Package backuptest produces encrypted backup streams for tests.
//
// A Writer emits the plaintext header frame followed by encrypted, MAC'd
// frames and payload blocks using the same key derivation and IV handling a
// reader expects, so tests can exercise the decode path end to end.
package backuptest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dmitrijs2005/signalbackup/internal/backuppb"
	"github.com/dmitrijs2005/signalbackup/internal/cryptox"
)

// Password is a valid 30 digit passphrase for test streams.
const Password = "000111222333444555666777888999"

// DefaultSalt and DefaultIV are used when a test does not care about them.
var (
	DefaultSalt = bytes.Repeat([]byte{0x73}, 32)
	DefaultIV   = []byte{
		0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
		0x18, 0x19, 0x1a, 0x1b, 0x00, 0x00, 0x00, 0x01,
	}
)

// Writer encodes a backup stream onto w.
type Writer struct {
	w       io.Writer
	block   cipher.Block
	macKey  []byte
	iv      [cryptox.IVSize]byte
	version uint32

	corruptTag bool
}

// NewWriter derives keys from password and salt and writes the header frame.
func NewWriter(w io.Writer, password string, salt, iv []byte, version uint32) (*Writer, error) {
	pw, err := cryptox.NormalizePassword(password)
	if err != nil {
		return nil, err
	}
	keys, err := cryptox.DeriveKeys(pw, salt)
	if err != nil {
		return nil, err
	}
	return NewWriterWithKeys(w, keys, salt, iv, version)
}

// NewWriterWithKeys is NewWriter for already derived keys.
func NewWriterWithKeys(w io.Writer, keys *cryptox.KeyMaterial, salt, iv []byte, version uint32) (*Writer, error) {
	if len(iv) != cryptox.IVSize {
		return nil, fmt.Errorf("iv must be %d bytes", cryptox.IVSize)
	}
	block, err := aes.NewCipher(keys.CipherKey[:])
	if err != nil {
		return nil, err
	}

	bw := &Writer{w: w, block: block, macKey: append([]byte(nil), keys.MACKey[:]...), version: version}
	copy(bw.iv[:], iv)

	hdr := &backuppb.Header{IV: iv, Salt: salt}
	if version > 0 {
		hdr.Version = backuppb.Ptr(version)
	}
	if err := bw.WritePlain(&backuppb.BackupFrame{Header: hdr}); err != nil {
		return nil, err
	}
	return bw, nil
}

// WritePlain writes a frame with a cleartext length prefix and no
// encryption, the way the header frame is stored.
func (bw *Writer) WritePlain(f *backuppb.BackupFrame) error {
	body := f.Marshal()
	out := binary.BigEndian.AppendUint32(nil, uint32(len(body)))
	return bw.write(append(out, body...))
}

// WriteFrame encrypts and writes an ordinary frame using the framing of the
// header version.
func (bw *Writer) WriteFrame(f *backuppb.BackupFrame) error {
	return bw.WriteRawFrame(f.Marshal())
}

// WriteRawFrame encrypts and writes already encoded frame bytes.
func (bw *Writer) WriteRawFrame(body []byte) error {
	length := binary.BigEndian.AppendUint32(nil, uint32(len(body)+cryptox.MACSize))
	mac := hmac.New(sha256.New, bw.macKey)
	stream := cipher.NewCTR(bw.block, bw.iv[:])

	var out []byte
	if bw.version == 0 {
		ct := make([]byte, len(body))
		stream.XORKeyStream(ct, body)
		mac.Write(ct)
		out = append(length, ct...)
	} else {
		plain := append(length, body...)
		ct := make([]byte, len(plain))
		stream.XORKeyStream(ct, plain)
		mac.Write(ct)
		out = ct
	}

	out = append(out, bw.tag(mac)...)
	bw.advance()
	return bw.write(out)
}

// WritePayload encrypts and writes a payload block. The caller writes the
// announcing frame first.
func (bw *Writer) WritePayload(data []byte) error {
	mac := hmac.New(sha256.New, bw.macKey)
	mac.Write(bw.iv[:])

	ct := make([]byte, len(data))
	cipher.NewCTR(bw.block, bw.iv[:]).XORKeyStream(ct, data)
	mac.Write(ct)

	out := append(ct, bw.tag(mac)...)
	bw.advance()
	return bw.write(out)
}

// WriteStatement writes a statement frame. Parameters may be string, int64,
// float64, []byte or nil.
func (bw *Writer) WriteStatement(sql string, params ...any) error {
	st := &backuppb.SQLStatement{Statement: backuppb.Ptr(sql)}
	for _, p := range params {
		sp := &backuppb.SQLParameter{}
		switch v := p.(type) {
		case string:
			sp.String = backuppb.Ptr(v)
		case int64:
			sp.Integer = backuppb.Ptr(uint64(v))
		case int:
			sp.Integer = backuppb.Ptr(uint64(v))
		case float64:
			sp.Double = backuppb.Ptr(v)
		case []byte:
			sp.Blob = v
		case nil:
			sp.Null = backuppb.Ptr(true)
		default:
			return fmt.Errorf("unsupported parameter type %T", p)
		}
		st.Parameters = append(st.Parameters, sp)
	}
	return bw.WriteFrame(&backuppb.BackupFrame{Statement: st})
}

// WriteVersion writes a database version frame.
func (bw *Writer) WriteVersion(v uint32) error {
	return bw.WriteFrame(&backuppb.BackupFrame{Version: &backuppb.DatabaseVersion{Version: backuppb.Ptr(v)}})
}

// WriteAttachment writes an attachment frame followed by its payload.
func (bw *Writer) WriteAttachment(rowID, attachmentID uint64, data []byte) error {
	err := bw.WriteFrame(&backuppb.BackupFrame{Attachment: &backuppb.Attachment{
		RowID:        backuppb.Ptr(rowID),
		AttachmentID: backuppb.Ptr(attachmentID),
		Length:       backuppb.Ptr(uint32(len(data))),
	}})
	if err != nil {
		return err
	}
	return bw.WritePayload(data)
}

// WriteAvatar writes an avatar frame followed by its payload.
func (bw *Writer) WriteAvatar(name string, data []byte) error {
	err := bw.WriteFrame(&backuppb.BackupFrame{Avatar: &backuppb.Avatar{
		Name:   backuppb.Ptr(name),
		Length: backuppb.Ptr(uint32(len(data))),
	}})
	if err != nil {
		return err
	}
	return bw.WritePayload(data)
}

// WriteSticker writes a sticker frame followed by its payload.
func (bw *Writer) WriteSticker(rowID uint64, data []byte) error {
	err := bw.WriteFrame(&backuppb.BackupFrame{Sticker: &backuppb.Sticker{
		RowID:  backuppb.Ptr(rowID),
		Length: backuppb.Ptr(uint32(len(data))),
	}})
	if err != nil {
		return err
	}
	return bw.WritePayload(data)
}

// WriteEnd writes the end frame.
func (bw *Writer) WriteEnd() error {
	return bw.WriteFrame(&backuppb.BackupFrame{End: backuppb.Ptr(true)})
}

// CorruptNextTag flips a bit in the MAC tag of the next frame or payload.
func (bw *Writer) CorruptNextTag() {
	bw.corruptTag = true
}

func (bw *Writer) tag(mac interface{ Sum([]byte) []byte }) []byte {
	t := mac.Sum(nil)[:cryptox.MACSize]
	if bw.corruptTag {
		t[0] ^= 0x01
		bw.corruptTag = false
	}
	return t
}

func (bw *Writer) advance() {
	ctr := bw.iv[cryptox.IVSize-4:]
	binary.BigEndian.PutUint32(ctr, binary.BigEndian.Uint32(ctr)+1)
}

func (bw *Writer) write(b []byte) error {
	_, err := bw.w.Write(b)
	return err
}
