package filters

import (
	"context"
	"regexp"
)

// secretPattern pairs a compiled regex with its redaction replacement, the
// same shape pkg/masking uses for its compiled patterns.
type secretPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// defaultSecretPatterns catches common credential shapes that an LLM
// response might echo back verbatim from tool output (API keys, AWS access
// keys, bearer tokens, PEM private key blocks). This is a supplemented
// feature beyond the distilled spec: a response-side complement to the
// tool-result masking pkg/masking already performs server-side.
func defaultSecretPatterns() []secretPattern {
	return []secretPattern{
		{
			name:        "aws_access_key",
			regex:       regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
			replacement: "[REDACTED_AWS_ACCESS_KEY]",
		},
		{
			name:        "generic_api_key_assignment",
			regex:       regexp.MustCompile(`(?i)(api[_-]?key|secret|token)\s*[:=]\s*["']?[A-Za-z0-9_\-]{16,}["']?`),
			replacement: "$1=[REDACTED]",
		},
		{
			name:        "bearer_token",
			regex:       regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-_.]{16,}`),
			replacement: "Bearer [REDACTED]",
		},
		{
			name:        "pem_private_key",
			regex:       regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),
			replacement: "[REDACTED_PRIVATE_KEY]",
		},
	}
}

// SecretMaskingResponseFilter redacts credential-shaped substrings from a
// final response before it reaches the caller. Idempotent: a second pass
// over already-redacted content matches nothing further.
type SecretMaskingResponseFilter struct {
	patterns []secretPattern
}

// NewSecretMaskingResponseFilter builds a filter using the default pattern
// set.
func NewSecretMaskingResponseFilter() *SecretMaskingResponseFilter {
	return &SecretMaskingResponseFilter{patterns: defaultSecretPatterns()}
}

func (f *SecretMaskingResponseFilter) Name() string { return "secret_masking" }

func (f *SecretMaskingResponseFilter) Apply(_ context.Context, content string) (string, error) {
	for _, p := range f.patterns {
		content = p.regex.ReplaceAllString(content, p.replacement)
	}
	return content, nil
}
