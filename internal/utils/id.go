package utils

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateNanoIDWithPrefix returns prefix_<16 chars>, or a bare id when prefix is empty.
func GenerateNanoIDWithPrefix(prefix string, size int) string {
	if size <= 0 {
		size = 16
	}
	id, err := gonanoid.Generate(idAlphabet, size)
	if err != nil {
		id = uuid.NewString()
	}
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

func NewSessionId() string {
	return uuid.NewString()
}
