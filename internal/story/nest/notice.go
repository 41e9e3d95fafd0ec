package nest

import (
	"errors"

	"dreamtales/internal/domain/library"
	"dreamtales/internal/domain/story"
)

// Notice is the user-facing form of an error
type Notice struct {
	Title       string
	Description string
}

// NoticeFor translates core errors into messages by category. Unknown errors
// keep their own text so nothing is hidden behind a generic message.
func NoticeFor(err error) Notice {
	switch {
	case err == nil:
		return Notice{}
	case errors.Is(err, story.ErrNotConfigured):
		return Notice{"Provider not configured", "No API key is set up for this provider. Add it to your environment or .env file."}
	case errors.Is(err, story.ErrUnauthorized):
		return Notice{"Authentication failed", "The provider rejected the API key. Please check that it is correct."}
	case errors.Is(err, story.ErrQuotaExceeded):
		return Notice{"Rate limit exceeded", "You've reached the provider's usage limit. Please check your account or try again later."}
	case errors.Is(err, story.ErrProviderUnavailable):
		return Notice{"Service unavailable", "The provider is having trouble right now. Please try again later."}
	case errors.Is(err, story.ErrNotAuthenticated):
		return Notice{"Please sign in", "You need to log in before creating or narrating stories."}
	case errors.Is(err, story.ErrInvalidParams):
		return Notice{"Check your story details", err.Error()}
	case errors.Is(err, story.ErrGenerationInProgress):
		return Notice{"Already working on it", "A story is being created. Please wait for it to finish."}
	case errors.Is(err, story.ErrStoryNotFound):
		return Notice{"Story not found", "That story is not in your collection."}
	case errors.Is(err, story.ErrAudioAlreadyAttached):
		return Notice{"Already narrated", "This story already has audio. Use --force to generate it again."}
	case errors.Is(err, story.ErrAudioUnavailable):
		return Notice{"Audio unavailable", "There is no playable audio for this story yet."}
	case errors.Is(err, library.ErrUserChanged):
		return Notice{"Signed in as someone else", "The active user changed, so the result was discarded."}
	case errors.Is(err, story.ErrGenerationFailed):
		return Notice{"Generation failed", err.Error()}
	}
	return Notice{"Something went wrong", err.Error()}
}
