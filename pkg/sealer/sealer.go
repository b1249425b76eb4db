package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	KEY = "u3P0cXbMhF1nQ9yKFvq8ZJxWm2rTogEdDkR5aYN4sLc="
)

// CreateTicketToken seals a ticket id and ticket number into the opaque
// payload embedded in the ticket's QR code. Gate scanners verify the
// token instead of trusting client-presented ids.
func CreateTicketToken(ticketID string, ticketNumber string) (string, error) {
	plaintext := []byte(ticketID + ":" + ticketNumber)

	key, err := base64.StdEncoding.DecodeString(KEY)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// ParseTicketToken reverses CreateTicketToken, returning the ticket id
// and ticket number.
func ParseTicketToken(token string) (string, string, error) {
	key, err := base64.StdEncoding.DecodeString(KEY)
	if err != nil {
		return "", "", err
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return "", "", fmt.Errorf("invalid token length")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", "", err
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid token format")
	}

	return parts[0], parts[1], nil
}
