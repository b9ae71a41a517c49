package push

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/hkdf"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	recordSize = 4096
	// salt(16) + rs(4) + idlen(1) + keyid(65)
	headerSize = 86
	// padding delimiter + GCM tag
	recordOverhead = 17
)

// MaxPayload is the largest payload that fits a single aes128gcm record.
const MaxPayload = recordSize - recordOverhead

// encrypt seals payload for one subscriber using the aes128gcm content coding.
func encrypt(payload []byte, p256dh, auth string, random io.Reader) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("push payload is %d bytes, limit is %d", len(payload), MaxPayload)
	}

	uaRaw, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("failed to decode p256dh: %w", err)
	}
	uaPublic, err := ecdh.P256().NewPublicKey(uaRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil || len(authSecret) != 16 {
		return nil, fmt.Errorf("invalid auth secret")
	}

	asPrivate, err := ecdh.P256().GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	shared, err := asPrivate.ECDH(uaPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to derive shared secret: %w", err)
	}
	asPublic := asPrivate.PublicKey().Bytes()

	salt := make([]byte, 16)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, nonce, err := contentCipher(shared, authSecret, salt, uaRaw, asPublic)
	if err != nil {
		return nil, err
	}

	body := make([]byte, headerSize, headerSize+len(payload)+recordOverhead)
	copy(body, salt)
	binary.BigEndian.PutUint32(body[16:20], recordSize)
	body[20] = byte(len(asPublic))
	copy(body[21:], asPublic)

	plaintext := append(append([]byte{}, payload...), 0x02)
	return aead.Seal(body, nonce, plaintext, nil), nil
}

func contentCipher(shared, authSecret, salt, uaPublic, asPublic []byte) (cipher.AEAD, []byte, error) {
	keyInfo := make([]byte, 0, 14+len(uaPublic)+len(asPublic))
	keyInfo = append(keyInfo, "WebPush: info\x00"...)
	keyInfo = append(keyInfo, uaPublic...)
	keyInfo = append(keyInfo, asPublic...)

	ikm, err := hkdf.Key(sha256.New, shared, authSecret, string(keyInfo), 32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive input key: %w", err)
	}
	cek, err := hkdf.Key(sha256.New, ikm, salt, "Content-Encoding: aes128gcm\x00", 16)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive content key: %w", err)
	}
	nonce, err := hkdf.Key(sha256.New, ikm, salt, "Content-Encoding: nonce\x00", 12)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive nonce: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nonce, nil
}
