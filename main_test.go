package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,"))
	assert.Empty(t, splitAndTrim("  "))
}

func TestSanitizeSegment(t *testing.T) {
	assert.Equal(t, "customer-photos_1", sanitizeSegment("customer-photos_1"))
	assert.Equal(t, "etcpasswd", sanitizeSegment("../etc/passwd"))
	assert.Equal(t, "", sanitizeSegment("../../"))
}

func TestExtensionFromMimeType(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFromMimeType("image/jpeg"))
	assert.Equal(t, ".pdf", extensionFromMimeType("application/pdf"))
	assert.Equal(t, "", extensionFromMimeType("application/octet-stream"))
}
