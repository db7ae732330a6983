// Package pagecrypto implements the page-level crypto primitives of
// spec.md §4.6: PBKDF2-HMAC-SHA512 key derivation, per-page HMAC-SHA512
// verification, and AES-256-CBC page decryption. Grounded in the
// teacher's internal/wechat/decrypt/common/common.go and
// internal/wechat/decrypt/windows/v4.go, generalized from a single
// hard-coded decryptor into a PageConfig value per spec.md §9
// ("polymorphism over format variants ... via a PageConfig value").
package pagecrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"hash"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

// V4 is the sole registered variant today: 4096-byte pages, 80-byte
// reserve (16 IV + 64 HMAC-SHA512), 256,000 PBKDF2 iterations. A future
// variant is a second Config value, not a new type.
var V4 = Config{
	PageConfig: model.PageConfig{
		Name:         "v4",
		PageSize:     4096,
		Reserve:      80,
		IVSize:       16,
		HMACSize:     64,
		IterCount:    256_000,
		SaltSize:     16,
		SQLiteHeader: "SQLite format 3\x00",
	},
	NewHash: sha512.New,
}

// Config pairs a PageConfig with the hash constructor it was verified
// against, since the HMAC and PBKDF2 primitives both need a concrete
// hash.Hash factory, not just a size.
type Config struct {
	model.PageConfig
	NewHash func() hash.Hash
}

// DeriveKeys implements spec.md §4.6's derivation:
//
//	enc_key = PBKDF2-HMAC-SHA512(master_secret, salt, iter_count, 32)
//	mac_salt = salt XOR 0x3A
//	mac_key = PBKDF2-HMAC-SHA512(enc_key, mac_salt, 2, 32)
func (c Config) DeriveKeys(secret model.MasterSecret, salt model.Salt) model.DerivedKeys {
	var keys model.DerivedKeys
	copy(keys.EncKey[:], pbkdf2.Key(secret[:], salt[:], c.IterCount, model.DerivedKeySize, c.NewHash))
	macSalt := xorBytes(salt[:], 0x3A)
	copy(keys.MacKey[:], pbkdf2.Key(keys.EncKey[:], macSalt, 2, model.DerivedKeySize, c.NewHash))
	return keys
}

func xorBytes(b []byte, x byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ x
	}
	return out
}

// macDomain returns (offset, mac_input) for page pageNum, per spec.md
// §4.6's HMAC domain: offset=16 only for page 0, mac_input covers
// page[offset:pageSize-reserve+ivSize] || LE32(pageNum+1).
func (c Config) macDomain(page []byte, pageNum int64) (offset int, input []byte) {
	offset = 0
	if pageNum == 0 {
		offset = c.SaltSize
	}
	dataEnd := c.PageSize - c.Reserve + c.IVSize
	input = make([]byte, 0, dataEnd-offset+4)
	input = append(input, page[offset:dataEnd]...)
	var seq [4]byte
	binary.LittleEndian.PutUint32(seq[:], uint32(pageNum+1))
	return offset, append(input, seq[:]...)
}

// VerifyPage recomputes the HMAC over page pageNum and compares it
// against the trailer stored in the page, full 64 bytes, no truncation.
func (c Config) VerifyPage(page []byte, keys model.DerivedKeys, pageNum int64) bool {
	if len(page) < c.PageSize {
		return false
	}
	_, macInput := c.macDomain(page, pageNum)
	mac := hmac.New(c.NewHash, keys.MacKey[:])
	mac.Write(macInput)
	computed := mac.Sum(nil)

	start := c.PageSize - c.Reserve + c.IVSize
	stored := page[start : start+c.HMACSize]
	return hmac.Equal(computed, stored)
}

// DecryptPage implements spec.md §4.6's decrypt step: AES-256-CBC with
// no padding over the page's ciphertext body, IV and HMAC trailer
// copied through verbatim. The all-zero-page passthrough and
// already-decrypted checks are the caller's responsibility (they are
// file-level policy, not page-level crypto).
func (c Config) DecryptPage(page []byte, keys model.DerivedKeys, pageNum int64) ([]byte, error) {
	if !c.VerifyPage(page, keys, pageNum) {
		return nil, werrors.ErrKeyInvalid
	}

	offset := 0
	if pageNum == 0 {
		offset = c.SaltSize
	}

	iv := page[c.PageSize-c.Reserve : c.PageSize-c.Reserve+c.IVSize]
	cipherBody := append([]byte(nil), page[offset:c.PageSize-c.Reserve]...)
	if rem := len(cipherBody) % aes.BlockSize; rem != 0 {
		log.Warn().Int64("page", pageNum).Msg("cipher body not block-aligned, zero-padding")
		cipherBody = append(cipherBody, make([]byte, aes.BlockSize-rem)...)
	}

	block, err := aes.NewCipher(keys.EncKey[:])
	if err != nil {
		return nil, werrors.Internal("create AES cipher failed", err)
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(cipherBody, cipherBody)

	out := make([]byte, 0, len(cipherBody)+c.Reserve)
	out = append(out, cipherBody...)
	out = append(out, page[c.PageSize-c.Reserve:c.PageSize]...)
	return out, nil
}

// IsAlreadyDecrypted reports whether the first 16 bytes of data equal
// this config's literal SQLite header.
func (c Config) IsAlreadyDecrypted(data []byte) bool {
	if len(data) < len(c.SQLiteHeader) {
		return false
	}
	return bytes.Equal(data[:len(c.SQLiteHeader)], []byte(c.SQLiteHeader))
}

// IsZeroPage reports whether page is entirely zero bytes, per spec.md
// §4.6's all-zero-page policy.
func IsZeroPage(page []byte) bool {
	for _, b := range page {
		if b != 0 {
			return false
		}
	}
	return true
}

// Salt extracts the first SaltSize bytes of an encrypted file's first
// page.
func (c Config) Salt(firstPage []byte) model.Salt {
	var s model.Salt
	copy(s[:], firstPage[:c.SaltSize])
	return s
}
