package utils

import (
	"crypto/rand"
	"strings"
)

// NewRoomToken returns an unguessable room token suitable for shareable links:
// 26 lowercase base32 characters, 128 bits of entropy.
func NewRoomToken() string {
	return strings.ToLower(rand.Text())
}
