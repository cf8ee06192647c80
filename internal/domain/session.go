package domain

import "time"

// Session is the server-side state behind the session cookie. UserID is nil
// until the session is authenticated.
type Session struct {
	ID               string     `json:"id" gorm:"primaryKey;size:64"`
	UserID           *uint      `json:"userId" gorm:"index"`
	Username         string     `json:"username" gorm:"size:50"`
	CSRFToken        string     `json:"csrfToken" gorm:"size:128"`
	LoginTime        *time.Time `json:"loginTime"`
	LastActivity     time.Time  `json:"lastActivity" gorm:"not null;index"`
	LastRegeneration time.Time  `json:"lastRegeneration" gorm:"not null"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (Session) TableName() string { return "user_sessions" }

func (s *Session) IsAuthenticated() bool {
	return s.UserID != nil && s.Username != ""
}

// RateLimitEntry counts attempts for one identifier inside the current window.
type RateLimitEntry struct {
	Identifier   string    `json:"identifier" gorm:"primaryKey;size:255"`
	Attempts     int       `json:"attempts" gorm:"not null"`
	FirstAttempt time.Time `json:"firstAttempt" gorm:"not null;index"`
	LastAttempt  time.Time `json:"lastAttempt" gorm:"not null"`
}

func (RateLimitEntry) TableName() string { return "rate_limits" }
