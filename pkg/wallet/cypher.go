package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/scrypt"
)

// ScryptLogN is the base 2 logarithm of the scrypt cost used for new
// cyphertexts. Every cyphertext carries the cost it was made with, so
// changing it doesn't affect what is already stored.
var ScryptLogN uint8 = 20

const (
	cypherVersion = 1

	scryptR       = 8
	scryptP       = 1
	maxScryptLogN = 22

	keyLen   = 32
	saltLen  = 16
	nonceLen = 12
	// version, log2(N), r and p followed by salt and nonce.
	headerLen = 4 + saltLen + nonceLen
)

// EncryptOpts is the struct given to Encrypt method
type EncryptOpts struct {
	PlainText  string
	Passphrase string
}

func (o EncryptOpts) validate() error {
	if len(o.PlainText) <= 0 {
		return ErrNullPlainText
	}
	if len(o.Passphrase) <= 0 {
		return ErrNullPassphrase
	}
	return nil
}

// DecryptOpts is the struct given to Decrypt method
type DecryptOpts struct {
	CypherText string
	Passphrase string
}

func (o DecryptOpts) validate() error {
	if len(o.CypherText) <= 0 {
		return ErrNullCypherText
	}
	if _, err := base64.StdEncoding.DecodeString(o.CypherText); err != nil {
		return ErrInvalidCypherText
	}
	if len(o.Passphrase) <= 0 {
		return ErrNullPassphrase
	}
	return nil
}

// Encrypt seals the plaintext with AES-256-GCM under a key stretched from
// the passphrase with scrypt. The result is the base64 encoding of the
// header followed by the sealed text.
func Encrypt(opts EncryptOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	box, err := newSealedBox()
	if err != nil {
		return "", err
	}
	aead, err := box.aead(opts.Passphrase)
	if err != nil {
		return "", err
	}
	box.sealed = aead.Seal(nil, box.nonce, []byte(opts.PlainText), box.header())

	return box.encode(), nil
}

// Decrypt opens a cyphertext made by Encrypt. ErrWrongPassphrase is returned
// if the passphrase doesn't match or the cyphertext was altered.
func Decrypt(opts DecryptOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	data, _ := base64.StdEncoding.DecodeString(opts.CypherText)
	box, err := parseSealedBox(data)
	if err != nil {
		return "", err
	}
	aead, err := box.aead(opts.Passphrase)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, box.nonce, box.sealed, box.header())
	if err != nil {
		return "", ErrWrongPassphrase
	}
	return string(plaintext), nil
}

// sealedBox is the decoded form of a cyphertext. The header is bound to the
// sealed text as additional data, so the scrypt parameters can't be
// tampered with.
type sealedBox struct {
	logN   uint8
	r      uint8
	p      uint8
	salt   []byte
	nonce  []byte
	sealed []byte
}

func newSealedBox() (*sealedBox, error) {
	random := make([]byte, saltLen+nonceLen)
	if _, err := io.ReadFull(rand.Reader, random); err != nil {
		return nil, err
	}
	return &sealedBox{
		logN:  ScryptLogN,
		r:     scryptR,
		p:     scryptP,
		salt:  random[:saltLen],
		nonce: random[saltLen:],
	}, nil
}

func parseSealedBox(data []byte) (*sealedBox, error) {
	if len(data) <= headerLen {
		return nil, ErrInvalidCypherText
	}
	if data[0] != cypherVersion {
		return nil, ErrUnsupportedCypherVersion
	}

	box := &sealedBox{
		logN:   data[1],
		r:      data[2],
		p:      data[3],
		salt:   data[4 : 4+saltLen],
		nonce:  data[4+saltLen : headerLen],
		sealed: data[headerLen:],
	}
	if box.logN < 1 || box.logN > maxScryptLogN || box.r == 0 || box.p == 0 {
		return nil, ErrInvalidCypherText
	}
	return box, nil
}

func (b *sealedBox) header() []byte {
	header := make([]byte, 0, headerLen)
	header = append(header, cypherVersion, b.logN, b.r, b.p)
	header = append(header, b.salt...)
	return append(header, b.nonce...)
}

func (b *sealedBox) encode() string {
	return base64.StdEncoding.EncodeToString(append(b.header(), b.sealed...))
}

func (b *sealedBox) aead(passphrase string) (cipher.AEAD, error) {
	key, err := scrypt.Key(
		[]byte(passphrase), b.salt, 1<<b.logN, int(b.r), int(b.p), keyLen,
	)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
