package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const fingerprintLength = sha256.Size * 2

// Fingerprint is sha256 over "gender|age|normalized symptoms", hex encoded.
// Normalization lower-cases and trims the symptom text.
func Fingerprint(gender string, age int, symptoms string) string {
	normalized := strings.ToLower(strings.TrimSpace(symptoms))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", gender, age, normalized)))
	return hex.EncodeToString(sum[:])
}

// CompositeQuery is the text embedded for semantic lookup and sent to generation.
func CompositeQuery(gender string, age int, symptoms string) string {
	return fmt.Sprintf("Стать: %s, Вік: %d, Симптоми: %s", gender, age, symptoms)
}

func validFingerprint(fp string) bool {
	if len(fp) != fingerprintLength {
		return false
	}
	_, err := hex.DecodeString(fp)
	return err == nil
}
