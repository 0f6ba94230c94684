package models

import "time"

// Gender is the optional self-described gender on a profile.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUndisclosed Gender = "undisclosed"
)

// User is both the identity record and the public profile of a marketplace member.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username     string    `json:"username" gorm:"type:varchar(100)" validate:"required,min=3,max=100"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"` // Never serialized
	Bio          string    `json:"bio,omitempty" validate:"omitempty,max=500"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Gender       Gender    `json:"gender,omitempty" gorm:"type:varchar(20)" validate:"omitempty,oneof=male female other undisclosed"`
	Address      string    `json:"address,omitempty" validate:"omitempty,max=255"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public returns a copy of the user without credential material.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
