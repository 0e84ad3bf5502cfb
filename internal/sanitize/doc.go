// Package sanitize detects personally identifiable information in query
// text and, depending on the configured mode, redacts it before the text
// is embedded or sent to a generator.
//
// Detection is pattern based. Each pattern has a type (EMAIL, PHONE, ...),
// a replacement mask and a confidence. Overlapping matches resolve to the
// pattern listed first. Credentials can additionally be found with the
// gitleaks rule set.
//
// When configured, the original text is kept as an AES-256-GCM ciphertext
// (or a salted hash when no secret is available) so audits can recover or
// verify what was redacted.
package sanitize
