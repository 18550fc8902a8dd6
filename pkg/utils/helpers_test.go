package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5(nil))
	assert.Equal(t, "9e107d9d372bb6826bd81d3542a419d6", CalculateMD5([]byte("The quick brown fox jumps over the lazy dog")))
}

func TestEmailFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jean Dupont", "jean.dupont@example.com"},
		{"  Alice   Martin  ", "alice.martin@example.com"},
		{"Cher", "cher@example.com"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EmailFromName(tt.name), tt.name)
	}
}
