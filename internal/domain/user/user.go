package user

import (
	"time"

	"dreamtales/internal/domain/story"
)

// User is the signed-in parent. It lives in session state only.
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Language  story.Language `json:"language"`
	CreatedAt time.Time      `json:"created_at"`
}
