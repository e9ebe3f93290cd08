// Package utils provides validation functions and byte helpers shared by
// the SLP overlay services and their configuration.
package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// Compiled regex patterns for validation
var (
	// topicServiceNameRegex validates topic or service names based on BRC-87 guidelines.
	// Pattern: must start with tm_ or ls_, contain only lowercase letters and underscores
	topicServiceNameRegex = regexp.MustCompile(`^(?:tm_|ls_)[a-z]+(?:_[a-z]+)*$`)

	hex64Regex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// IsValidTopicOrServiceName checks if the provided name is valid based on BRC-87 guidelines.
//
// Rules:
//   - Must be between 1-50 characters total
//   - Must start with "tm_" (topic) or "ls_" (lookup service) prefix
//   - After prefix, must contain only lowercase letters and underscores
//   - Underscores can only separate groups of lowercase letters
//
// Examples:
//   - Valid: "tm_slp", "ls_slp", "tm_slp_tokens"
//   - Invalid: "slp", "TM_slp", "tm_", "tm__slp", "tm_slp_"
func IsValidTopicOrServiceName(name string) bool {
	if len(name) < 1 || len(name) > 50 {
		return false
	}
	return topicServiceNameRegex.MatchString(name)
}

// IsValidTopicName reports whether name is a valid topic manager name.
func IsValidTopicName(name string) bool {
	return strings.HasPrefix(name, "tm_") && IsValidTopicOrServiceName(name)
}

// IsValidServiceName reports whether name is a valid lookup service name.
func IsValidServiceName(name string) bool {
	return strings.HasPrefix(name, "ls_") && IsValidTopicOrServiceName(name)
}

// IsHex32 reports whether s is 64 hex characters, the text form of a token
// id or transaction id.
func IsHex32(s string) bool {
	return hex64Regex.MatchString(s)
}

// IsPublicHostingURL checks that a node's public URL can be handed to
// overlay peers: an https:// URL with a host other than localhost and no
// path beyond "/".
func IsPublicHostingURL(uri string) bool {
	if strings.TrimSpace(uri) == "" || !strings.HasPrefix(uri, "https://") {
		return false
	}
	parsedURL, err := url.Parse(uri)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host == "" || host == "localhost" {
		return false
	}
	return parsedURL.Path == "" || parsedURL.Path == "/"
}
