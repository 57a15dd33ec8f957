package models

import "time"

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// LinkRequest is the payload for creating or updating a link.
type LinkRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	URL      string `json:"url" validate:"required,url"`
	Category string `json:"category" validate:"omitempty,max=50"`
}

// ProfileUpdateRequest is an explicit partial update: only non-nil fields
// are applied. Theme is restricted to the recognized values.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url"`
	Theme       *string `json:"theme" validate:"omitempty,oneof=light dark gradient"`
	IsPublic    *bool   `json:"isPublic"`
}

// ProfileResponse is the owner's view of their profile.
type ProfileResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatarUrl"`
	Theme       string    `json:"theme"`
	IsPublic    bool      `json:"isPublic"`
	LinkCount   int64     `json:"linkCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PublicProfileResponse is the anonymous view of a public profile.
// It carries no privacy or audit fields.
type PublicProfileResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
	Theme       string `json:"theme"`
	LinkCount   int64  `json:"linkCount"`
}

type ClickResponse struct {
	Success    bool  `json:"success"`
	ClickCount int64 `json:"clickCount"`
}

type TopLink struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	ClickCount  int64      `json:"clickCount"`
	LastClicked *time.Time `json:"lastClicked,omitempty"`
}

type AnalyticsResponse struct {
	TotalLinks       int64            `json:"totalLinks"`
	TotalClicks      int64            `json:"totalClicks"`
	TopLinks         []TopLink        `json:"topLinks"`
	ClicksByCategory map[string]int64 `json:"clicksByCategory"`
}

type AdminStatsResponse struct {
	TotalUsers          int64   `json:"totalUsers"`
	TotalLinks          int64   `json:"totalLinks"`
	ActiveUsers         int64   `json:"activeUsers"`
	RecentRegistrations int64   `json:"recentRegistrations"`
	AverageLinksPerUser float64 `json:"averageLinksPerUser"`
}

// AdminUserView is the per-user row of the admin user listing.
type AdminUserView struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	LinkCount   int64     `json:"linkCount"`
	IsAdmin     bool      `json:"isAdmin"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GrowthPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ToggleAdminResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// DeleteLinksRequest is the payload for the asynchronous batch deletion
// endpoint: a list of link IDs owned by the caller.
type DeleteLinksRequest []string

// LinkDeleteJob is a unit of work for the background links remover.
type LinkDeleteJob struct {
	Owner         string
	LinksToDelete DeleteLinksRequest
}

// InternalStatsResponse is served to the trusted subnet only.
type InternalStatsResponse struct {
	Users int64 `json:"users"`
	Links int64 `json:"links"`
}

// Storage backend kinds selected from configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)
