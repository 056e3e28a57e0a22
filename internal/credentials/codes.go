// Package credentials generates the human-friendly codes used to join
// families and classrooms.
package credentials

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Word lists for readable join codes
var adjectives = []string{
	"happy", "sunny", "brave", "bright", "calm", "swift", "clever", "jolly",
	"gentle", "kind", "curious", "lively", "merry", "quiet", "steady", "cheerful",
	"eager", "golden", "green", "little", "patient", "playful", "rosy", "tidy",
}

var nouns = []string{
	"acorn", "otter", "robin", "fern", "maple", "sparrow", "meadow", "pebble",
	"willow", "clover", "badger", "heron", "lantern", "orchard", "sprout", "seedling",
	"river", "hedgehog", "puffin", "thistle", "walnut", "rabbit", "finch", "tulip",
}

const digits = "0123456789"

// GenerateJoinCode returns a code like "gentle-otter-42" for classrooms
func GenerateJoinCode() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}
	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}
	suffix, err := randomString(digits, 2)
	if err != nil {
		return "", err
	}
	return adjective + "-" + noun + "-" + suffix, nil
}

// GenerateInviteCode returns an 8 character upper-case code for family invitations
func GenerateInviteCode() (string, error) {
	// no 0/O or 1/I to keep codes easy to read aloud
	return randomString("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", 8)
}

// NormalizeInviteCode trims and upper-cases an invitation code typed by a user
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCode trims and lower-cases join codes typed by a user
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}
	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return slice[num.Int64()], nil
}
