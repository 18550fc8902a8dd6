// Package utils collects small cross-cutting helpers.
package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// CalculateMD5 returns the hex MD5 digest of data. Used for upload
// deduplication, not for anything security sensitive.
func CalculateMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// EmailFromName synthesizes a placeholder address from a display name:
// lowercase, spaces collapsed to dots, at example.com. "Jean Dupont" becomes
// "jean.dupont@example.com". An empty name yields an empty string so callers
// can tell nothing was synthesized.
func EmailFromName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	local := strings.ToLower(trimmed)
	local = strings.Join(strings.Fields(local), ".")
	return local + "@example.com"
}
