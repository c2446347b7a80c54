package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"loanpilot/config"
	"loanpilot/models"
)

func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	key := []byte(config.AppConfig.EncryptionKey)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	key := []byte(config.AppConfig.EncryptionKey)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	decoded, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	if len(decoded) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	iv := decoded[:aes.BlockSize]
	decoded = decoded[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(decoded, decoded)

	return string(decoded), nil
}

// RedactContact encrypts a contact's email and phone into the returned
// ciphertexts and replaces the stored values with the redaction marker.
// Audit rules skip format checks on redacted fields.
func RedactContact(contact *models.Contact) (emailCipher, phoneCipher string, err error) {
	if email, ok := contact.Email.Plain(); ok {
		emailCipher, err = Encrypt(email)
		if err != nil {
			return "", "", err
		}
		contact.Email = models.RedactedValue
	}
	if phone, ok := contact.Phone.Plain(); ok {
		phoneCipher, err = Encrypt(phone)
		if err != nil {
			return "", "", err
		}
		contact.Phone = models.RedactedValue
	}
	return emailCipher, phoneCipher, nil
}
