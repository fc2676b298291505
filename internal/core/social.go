package core

import (
	"strings"
	"time"
)

const maxCommentLength = 1000

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

const (
	NotifyComment        NotificationKind = "comment"
	NotifyLike           NotificationKind = "like"
	NotifyFriendRequest  NotificationKind = "friend_request"
	NotifyFriendAccepted NotificationKind = "friend_accepted"
	NotifyCatchShared    NotificationKind = "catch_shared"
)

type (
	FriendshipStatus string
	NotificationKind string

	Like struct {
		CatchID   string    `json:"catchId"`
		UserID    string    `json:"userId"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Comment struct {
		ID        string    `json:"id"`
		CatchID   string    `json:"catchId"`
		UserID    string    `json:"userId"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Friendship is directed: UserID asked FriendID.
	Friendship struct {
		ID        string           `json:"id"`
		UserID    string           `json:"userId"`
		FriendID  string           `json:"friendId"`
		Status    FriendshipStatus `json:"status"`
		CreatedAt time.Time        `json:"createdAt"`
	}

	// FeedItem is a public catch joined with its social counters. The counters
	// are read-time aggregates and may lag behind the latest like or comment.
	FeedItem struct {
		Catch         Catch `json:"catch"`
		LikesCount    int   `json:"likesCount"`
		CommentsCount int   `json:"commentsCount"`
	}

	Notification struct {
		UserID    string           `json:"userId"`
		Kind      NotificationKind `json:"kind"`
		Title     string           `json:"title"`
		Body      string           `json:"body"`
		Tag       string           `json:"tag"`
		CreatedAt time.Time        `json:"createdAt"`
	}
)

func (s FriendshipStatus) IsValid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipRejected:
		return true
	default:
		return false
	}
}

func (c Comment) Validate() error {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return &ValidationError{Field: "content", Reason: "cannot be empty"}
	}
	if len(content) > maxCommentLength {
		return &ValidationError{Field: "content", Reason: "too long (max 1000 characters)"}
	}
	return nil
}

func (f Friendship) Validate() error {
	if strings.TrimSpace(f.FriendID) == "" {
		return &ValidationError{Field: "friendId", Reason: "cannot be empty"}
	}
	if f.UserID == f.FriendID {
		return &ValidationError{Field: "friendId", Reason: "cannot befriend yourself"}
	}
	if !f.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: "unknown friendship status"}
	}
	return nil
}

// Involves reports whether userID is either side of the friendship.
func (f Friendship) Involves(userID string) bool {
	return f.UserID == userID || f.FriendID == userID
}
