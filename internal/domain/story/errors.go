package story

import "errors"

// Error categories surfaced by generation, narration and lookup.
// Callers wrap them with fmt.Errorf("%w") and test them with errors.Is.
var (
	ErrNotConfigured        = errors.New("provider credential not configured")
	ErrUnauthorized         = errors.New("provider rejected credential")
	ErrQuotaExceeded        = errors.New("provider quota or rate limit exceeded")
	ErrProviderUnavailable  = errors.New("provider temporarily unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrNotAuthenticated     = errors.New("user not authenticated")
	ErrStoryNotFound        = errors.New("story not found")
	ErrInvalidParams        = errors.New("invalid story parameters")
	ErrGenerationInProgress = errors.New("a story is already being generated")
	ErrAudioAlreadyAttached = errors.New("story already has narration")
	ErrAudioUnavailable     = errors.New("audio unavailable")
)
