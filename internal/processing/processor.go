package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`(?:https?://|www\.)[^\s]+`)

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// BuildCommentID hashes the most stable fields of a comment to form a
// deterministic document ID.
func BuildCommentID(videoID, authorID, text, publishedAt string) string {
	s := sha1.Sum([]byte(videoID + "|" + authorID + "|" + text + "|" + strings.TrimSpace(publishedAt)))
	return hex.EncodeToString(s[:])
}
