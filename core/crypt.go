/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"crypto/md5"
	"crypto/rc4"
	"errors"

	"github.com/windrose-labs/pdfrender/common"
)

// padBytes is the 32-byte password padding string from PDF spec Algorithm 2.
var padBytes = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// crypt implements the standard security handler for RC4-encrypted PDFs
// (spec.md §2/§9: "standard-security RC4 encryption using the padded-password
// scheme, Algorithms 1 & 2 of PDF-spec §7.6.3"). AESV2/AESV3 and revisions
// other than 2/3 are rejected with ErrNotSupported.
type crypt struct {
	fileKey          []byte
	keyLenBytes      int
	v, r             int
	decryptedObjects map[PdfObject]bool
}

// newCrypt derives the file encryption key from the trailer's /Encrypt
// dictionary, the first element of /ID, and ownerPassword/userPassword
// (either may be empty, tried as the empty user password per Algorithm 2).
func newCrypt(encrypt *PdfObjectDictionary, id0 []byte, ownerPassword, userPassword string) (*crypt, error) {
	filter, _ := GetNameVal(encrypt.Get("Filter"))
	if filter != "Standard" {
		return nil, ErrNotSupported
	}

	v, _ := GetIntVal(encrypt.Get("V"))
	r, _ := GetIntVal(encrypt.Get("R"))
	if r != 2 && r != 3 {
		return nil, ErrNotSupported
	}

	o, ok := GetStringVal(encrypt.Get("O"))
	if !ok {
		return nil, errors.New("missing /O entry")
	}
	u, ok := GetStringVal(encrypt.Get("U"))
	if !ok {
		return nil, errors.New("missing /U entry")
	}
	p, _ := GetIntVal(encrypt.Get("P"))

	lengthBits := 40
	if l, ok := GetIntVal(encrypt.Get("Length")); ok {
		lengthBits = l
	}
	keyLen := lengthBits / 8
	if keyLen <= 0 {
		keyLen = 5
	}

	key := deriveFileKey([]byte(userPassword), []byte(o), int32(p), id0, r, keyLen)

	// The key comes from the user password alone. It is not verified against
	// /U (Algorithms 4/5), and the owner password is not used (no Algorithm 7
	// recovery): a wrong password yields a wrong key rather than an error.
	_ = u
	_ = ownerPassword

	return &crypt{
		fileKey:          key,
		keyLenBytes:      keyLen,
		v:                v,
		r:                r,
		decryptedObjects: map[PdfObject]bool{},
	}, nil
}

// deriveFileKey implements Algorithm 2 (PDF spec §7.6.3.3).
func deriveFileKey(password, o []byte, p int32, id0 []byte, r, keyLenBytes int) []byte {
	padded := padPassword(password)

	h := md5.New()
	h.Write(padded)
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(id0)
	sum := h.Sum(nil)

	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum2 := md5.Sum(sum[:keyLenBytes])
			sum = sum2[:]
		}
	}

	if keyLenBytes > len(sum) {
		keyLenBytes = len(sum)
	}
	return sum[:keyLenBytes]
}

// padPassword implements Algorithm 2 step (a): pad/truncate to 32 bytes.
func padPassword(pw []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pw)
	copy(out[n:], padBytes)
	return out
}

// objectKey implements Algorithm 1 step (b)-(d): per-object RC4 key.
func (c *crypt) objectKey(objNum, genNum int64) []byte {
	h := md5.New()
	h.Write(c.fileKey)
	h.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16)})
	h.Write([]byte{byte(genNum), byte(genNum >> 8)})
	sum := h.Sum(nil)

	n := c.keyLenBytes + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

func (c *crypt) decryptBytes(objNum, genNum int64, data []byte) ([]byte, error) {
	key := c.objectKey(objNum, genNum)
	cip, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cip.XORKeyStream(out, data)
	return out, nil
}

func (c *crypt) isDecrypted(obj PdfObject) bool {
	if c == nil {
		return true
	}
	return c.decryptedObjects[obj]
}

func (c *crypt) markDecrypted(obj PdfObject) {
	c.decryptedObjects[obj] = true
}

// decryptObject decrypts every string and stream found directly within obj
// (strings/streams nested in object streams are never separately encrypted,
// per PDF spec §7.6.2) and marks it as decrypted.
func (c *crypt) decryptObject(obj PdfObject) error {
	if c.isDecrypted(obj) {
		return nil
	}

	var objNum, genNum int64
	switch t := obj.(type) {
	case *PdfIndirectObject:
		objNum, genNum = t.ObjectNumber, t.GenerationNumber
		if err := c.decryptObjectContents(t.PdfObject, objNum, genNum); err != nil {
			return err
		}
	case *PdfObjectStream:
		objNum, genNum = t.ObjectNumber, t.GenerationNumber
		if name, _ := GetNameVal(t.PdfObjectDictionary.Get("Type")); name != "XRef" {
			dec, err := c.decryptBytes(objNum, genNum, t.Stream)
			if err != nil {
				return err
			}
			t.Stream = dec
		}
		if err := c.decryptObjectContents(t.PdfObjectDictionary, objNum, genNum); err != nil {
			return err
		}
	}

	c.markDecrypted(obj)
	return nil
}

func (c *crypt) decryptObjectContents(obj PdfObject, objNum, genNum int64) error {
	switch t := obj.(type) {
	case *PdfObjectString:
		dec, err := c.decryptBytes(objNum, genNum, t.raw)
		if err != nil {
			return err
		}
		t.raw = dec
	case *PdfObjectArray:
		for _, e := range t.vec {
			if err := c.decryptObjectContents(e, objNum, genNum); err != nil {
				return err
			}
		}
	case *PdfObjectDictionary:
		for _, k := range t.Keys() {
			if err := c.decryptObjectContents(t.Get(k), objNum, genNum); err != nil {
				return err
			}
		}
	}
	return nil
}

// logUnsupportedEncryption records that an /Encrypt dictionary was present
// but uses a revision or filter this engine doesn't implement (AESV2/AESV3,
// public-key security, or R>4); per spec.md §7 this surfaces as Unsupported
// without corrupting state: the error is returned to the caller, and the
// engine ends the conversion with an Unsupported error.
func logUnsupportedEncryption(reason string) {
	common.Log.Debug("encryption not supported: %s", reason)
}
