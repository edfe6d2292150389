package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// JudgeClientKeyByteLength is the amount of entropy in a judge client key
const JudgeClientKeyByteLength = 30

// GenerateJudgeClientKey returns a fresh base64 encoded judge client credential
func GenerateJudgeClientKey() (string, error) {
	buf := make([]byte, JudgeClientKeyByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate judge client key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
