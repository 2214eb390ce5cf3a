// Package gameid generates the two identifiers the service hands out:
// short human-typable game codes and time-sortable player ids.
package gameid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Base32 alphabet used for player ids (Crockford's base32).
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Game codes avoid lowercase and ambiguity-prone characters; they are
// read out loud between friends.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a game code.
const CodeLength = 6

// RandSource abstracts randomness for deterministic tests.
type RandSource interface {
	Intn(n int) int
}

// Generator produces ids with configurable randomness. A nil RandSource
// uses crypto/rand.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator with an optional RandSource.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// NewPlayerID creates a new player id using the default generator.
func NewPlayerID() string {
	return NewGenerator(nil).PlayerID()
}

// NewCode creates a new game code using the default generator.
func NewCode() string {
	return NewGenerator(nil).Code()
}

// Code returns a 6-character uppercase game code.
func (g *Generator) Code() string {
	out := make([]byte, CodeLength)
	for i := range out {
		out[i] = codeAlphabet[g.intn(len(codeAlphabet))]
	}
	return string(out)
}

// PlayerID returns a UUIDv7 encoded as a 26-character base32 string.
// The leading timestamp keeps ids sortable by creation time.
func (g *Generator) PlayerID() string {
	uuid := g.uuidv7()
	return encodeBase32(uuid)
}

func (g *Generator) intn(n int) int {
	if g.randSource != nil {
		return g.randSource.Intn(n)
	}
	var b [1]byte
	// Rejection sampling keeps the distribution uniform.
	max := 256 - (256 % n)
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic("gameid: failed to read random bytes: " + err.Error())
		}
		if int(b[0]) < max {
			return int(b[0]) % n
		}
	}
}

func (g *Generator) uuidv7() [16]byte {
	var uuid [16]byte

	now := time.Now().UnixMilli()
	uuid[0] = byte(now >> 40)
	uuid[1] = byte(now >> 32)
	uuid[2] = byte(now >> 24)
	uuid[3] = byte(now >> 16)
	uuid[4] = byte(now >> 8)
	uuid[5] = byte(now)

	if g.randSource != nil {
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.randSource.Intn(256))
		}
	} else {
		if _, err := rand.Read(uuid[6:]); err != nil {
			panic("gameid: failed to read random bytes: " + err.Error())
		}
	}

	// Version 7, variant 10.
	uuid[6] = (uuid[6] & 0x0f) | 0x70
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return uuid
}

// encodeBase32 encodes 128 bits as 26 base32 characters.
func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := 0; i < 26; i++ {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// ValidateCode checks that a game code has the expected shape.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("game code must be %d characters, got %d", CodeLength, len(code))
	}
	for i := 0; i < len(code); i++ {
		valid := false
		for j := 0; j < len(codeAlphabet); j++ {
			if code[i] == codeAlphabet[j] {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid character %q in game code", code[i])
		}
	}
	return nil
}
