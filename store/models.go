package store

import (
	"time"
)

// User is the credential record for a single account. Password hash, refresh
// token and outstanding single-use token hashes live directly on the row;
// there is no separate token table.
type User struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	Email         string  `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username      string  `json:"username" gorm:"uniqueIndex;size:255;not null"`
	Fullname      string  `json:"fullname" gorm:"size:255"`
	AvatarURL     string  `json:"avatar_url" gorm:"size:512"`
	AvatarKey     string  `json:"-" gorm:"size:512"`
	CoverImageURL string  `json:"cover_image_url" gorm:"size:512"`
	CoverImageKey string  `json:"-" gorm:"size:512"`
	PasswordHash  string  `json:"-" gorm:"size:255;not null"`
	RefreshToken  *string `json:"-" gorm:"size:1024"`

	IsEmailVerified         bool       `json:"is_email_verified"`
	EmailVerificationToken  *string    `json:"-" gorm:"size:128;index"`
	EmailVerificationExpiry *time.Time `json:"-"`
	ForgotPasswordToken     *string    `json:"-" gorm:"size:128;index"`
	ForgotPasswordExpiry    *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Profile is the sanitized projection returned to callers. Password hash,
// refresh token and token hashes never leave the store layer.
type Profile struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	Fullname        string    `json:"fullname"`
	AvatarURL       string    `json:"avatar_url"`
	CoverImageURL   string    `json:"cover_image_url"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u *User) Sanitize() Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		Fullname:        u.Fullname,
		AvatarURL:       u.AvatarURL,
		CoverImageURL:   u.CoverImageURL,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}
