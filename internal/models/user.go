package models

import (
	"time"
)

// User is the profile recorded at sign-up. Credentials stay with the identity provider.
type User struct {
	UID         string    `firestore:"uid" json:"uid" gorm:"primaryKey"`
	Email       string    `firestore:"email" json:"email" gorm:"index"`
	DisplayName string    `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updatedAt"`
}
