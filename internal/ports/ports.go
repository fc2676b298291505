// Package ports declares the outbound collaborators the services depend on.
package ports

import (
	"context"
	"time"

	"fishbox/internal/core"
)

type (
	// CatchRepository is the persistence collaborator for catches. Insert
	// assigns the id. Get, Update and Delete return *core.NotFoundError for
	// unknown ids.
	CatchRepository interface {
		// ListByOwner returns every catch of ownerID, newest Date first.
		ListByOwner(ctx context.Context, ownerID string) ([]core.Catch, error)
		// ListPublicSince returns public catches with Date >= since. A zero
		// since returns all public catches.
		ListPublicSince(ctx context.Context, since time.Time) ([]core.Catch, error)
		// RecentPublic returns the latest public catches by CreatedAt.
		RecentPublic(ctx context.Context, limit int) ([]core.Catch, error)
		Get(ctx context.Context, id string) (core.Catch, error)
		Insert(ctx context.Context, c core.Catch) (core.Catch, error)
		Update(ctx context.Context, id string, patch core.CatchPatch) (core.Catch, error)
		// Delete removes the catch together with its likes and comments.
		Delete(ctx context.Context, id string) error
	}

	LikeRepository interface {
		AddLike(ctx context.Context, l core.Like) error
		RemoveLike(ctx context.Context, catchID, userID string) error
		HasLiked(ctx context.Context, catchID, userID string) (bool, error)
		CountLikes(ctx context.Context, catchID string) (int, error)
	}

	CommentRepository interface {
		AddComment(ctx context.Context, c core.Comment) (core.Comment, error)
		GetComment(ctx context.Context, id string) (core.Comment, error)
		DeleteComment(ctx context.Context, id string) error
		// ListComments returns the comments of a catch, newest first.
		ListComments(ctx context.Context, catchID string) ([]core.Comment, error)
		CountComments(ctx context.Context, catchID string) (int, error)
	}

	// FriendshipRepository stores friend requests. CreateFriendship fails
	// with a core.ErrConflict persistence error when the pair already exists
	// in either direction.
	FriendshipRepository interface {
		CreateFriendship(ctx context.Context, f core.Friendship) (core.Friendship, error)
		GetFriendship(ctx context.Context, id string) (core.Friendship, error)
		UpdateFriendshipStatus(ctx context.Context, id string, status core.FriendshipStatus) (core.Friendship, error)
		DeleteFriendship(ctx context.Context, id string) error
		ListFriendships(ctx context.Context, userID string) ([]core.Friendship, error)
	}

	SocialRepository interface {
		LikeRepository
		CommentRepository
		FriendshipRepository
	}

	// PhotoStore removes stored photos by the URL handed out at upload time.
	PhotoStore interface {
		Delete(ctx context.Context, url string) error
	}

	Geocoder interface {
		ReverseGeocode(ctx context.Context, c core.Coordinates) (string, error)
	}

	WeatherProvider interface {
		WeatherAt(ctx context.Context, c core.Coordinates, at time.Time) (core.Weather, error)
	}

	// CatchEnricher fills in missing location and weather on a new catch.
	// It must not fail the caller; problems are logged and skipped.
	CatchEnricher interface {
		Enrich(ctx context.Context, in *core.CatchInput)
	}

	Notifier interface {
		Notify(ctx context.Context, n core.Notification) error
	}

	// ExportQueue hands newly created catches to the export worker.
	ExportQueue interface {
		EnqueueExport(ctx context.Context, c core.Catch) error
	}

	// CatchExporter appends a catch to an external catch log.
	CatchExporter interface {
		Export(ctx context.Context, c core.Catch) (rowRef string, err error)
	}
)
