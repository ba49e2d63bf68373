package constants

import "time"

// Context keys
const (
	ContextKeyUser   = "user"
	ContextKeyClaims = "claims"
)

// Credentials
const (
	MinPasswordLength     = 8
	ValidationCodeLength  = 6
	MaxValidationAttempts = 3
	DefaultTokenTTL       = 2 * time.Hour
)

// Uploads
const (
	UploadFormField    = "file"
	MaxSignatureBytes  = 1 << 20
	MaxLogoBytes       = 2 << 20
	SignatureBoxPoints = 250
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
