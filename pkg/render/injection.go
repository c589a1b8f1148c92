package render

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a text value that looks like SQL injection.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Target      string // Table or column the text was attached to
	Text        string // The value that was checked
}

// CheckCommentForInjection uses libinjection to detect SQL injection
// patterns in ontology text that will be emitted inside a SQL literal.
//
// Returns nil if no injection is detected.
//
// Example:
//
//	result := CheckCommentForInjection("person", "A human being")
//	// result == nil
//
//	result := CheckCommentForInjection("person", "x'; DROP TABLE person--")
//	// result.IsSQLi == true
func CheckCommentForInjection(target, text string) *InjectionCheckResult {
	if text == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Target:      target,
		Text:        text,
	}
}
