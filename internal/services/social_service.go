package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fishbox/internal/cache"
	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
	"fishbox/internal/stats"
)

const (
	DefaultFeedLimit = 50
	maxFeedLimit     = 200
	feedConcurrency  = 8
)

type (
	LeaderboardResult struct {
		Window  stats.Window             `json:"window"`
		Metric  stats.Metric             `json:"metric"`
		Entries []stats.LeaderboardEntry `json:"entries"`
		// MyRank is the caller's 1-based rank, 0 when unranked.
		MyRank int `json:"myRank"`
	}

	// FriendList splits a user's friendships by state. Rejected requests are
	// not listed.
	FriendList struct {
		Accepted []core.Friendship `json:"accepted"`
		Incoming []core.Friendship `json:"incoming"`
		Outgoing []core.Friendship `json:"outgoing"`
	}
)

// SocialService covers likes, comments, the public feed, the leaderboard and
// friendships. Notifications it triggers are fire-and-forget.
type SocialService struct {
	catches  ports.CatchRepository
	social   ports.SocialRepository
	notifier ports.Notifier
	bg       *Background
	boards   *cache.Loader[[]stats.LeaderboardEntry]
	now      func() time.Time
	logger   *slog.Logger
}

func NewSocialService(catches ports.CatchRepository, social ports.SocialRepository, notifier ports.Notifier, bg *Background, boardTTL time.Duration) *SocialService {
	if bg == nil {
		bg = NewBackground(0)
	}
	if boardTTL <= 0 {
		boardTTL = time.Minute
	}
	return &SocialService{
		catches:  catches,
		social:   social,
		notifier: notifier,
		bg:       bg,
		boards:   cache.NewLoader(cache.NewLRUCache[[]stats.LeaderboardEntry](16, boardTTL)),
		now:      time.Now,
		logger:   applog.WithComponent(applog.ComponentSocial),
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *SocialService) SetClock(now func() time.Time) {
	s.now = now
}

// LeaderboardCache exposes the leaderboard cache for cleanup registration.
func (s *SocialService) LeaderboardCache() *cache.LRUCache[[]stats.LeaderboardEntry] {
	return s.boards.Cache()
}

// visibleCatch returns the catch if userID may see it: its owner always, any
// other user only while it is public.
func (s *SocialService) visibleCatch(ctx context.Context, userID, catchID string) (core.Catch, error) {
	c, err := s.catches.Get(ctx, catchID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Catch{}, err
		}
		return core.Catch{}, asFetch("get catch", err)
	}
	if c.OwnerID != userID && !c.IsPublic {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: catchID}
	}
	return c, nil
}

// Catch returns a single catch as userID may see it.
func (s *SocialService) Catch(ctx context.Context, userID, catchID string) (core.Catch, error) {
	return s.visibleCatch(ctx, userID, catchID)
}

// ToggleLike likes the catch, or unlikes it when userID already did. It
// returns the resulting state.
func (s *SocialService) ToggleLike(ctx context.Context, userID, catchID string) (bool, error) {
	c, err := s.visibleCatch(ctx, userID, catchID)
	if err != nil {
		return false, err
	}

	liked, err := s.social.HasLiked(ctx, catchID, userID)
	if err != nil {
		return false, asFetch("check like", err)
	}
	if liked {
		if err := s.social.RemoveLike(ctx, catchID, userID); err != nil {
			return true, asPersistence("remove like", err)
		}
		return false, nil
	}

	if err := s.social.AddLike(ctx, core.Like{CatchID: catchID, UserID: userID, CreatedAt: s.now()}); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// a concurrent request liked it first
			return true, nil
		}
		return false, asPersistence("add like", err)
	}
	if c.OwnerID != userID {
		dispatch(ctx, s.bg, s.notifier, likeNotification(c.OwnerID, userID, c, s.now()))
	}
	return true, nil
}

func (s *SocialService) AddComment(ctx context.Context, userID, catchID, content string) (core.Comment, error) {
	comment := core.Comment{CatchID: catchID, UserID: userID, Content: strings.TrimSpace(content), CreatedAt: s.now()}
	if err := comment.Validate(); err != nil {
		return core.Comment{}, err
	}
	c, err := s.visibleCatch(ctx, userID, catchID)
	if err != nil {
		return core.Comment{}, err
	}

	saved, err := s.social.AddComment(ctx, comment)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Comment{}, err
		}
		return core.Comment{}, asPersistence("add comment", err)
	}
	if c.OwnerID != userID {
		dispatch(ctx, s.bg, s.notifier, commentNotification(c.OwnerID, userID, c, s.now()))
	}
	return saved, nil
}

// DeleteComment removes a comment written by userID. Comments of other users
// are reported as not found.
func (s *SocialService) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.social.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return &core.NotFoundError{Kind: "comment", ID: commentID}
	}
	return s.social.DeleteComment(ctx, commentID)
}

// Comments lists the comments of a catch, newest first.
func (s *SocialService) Comments(ctx context.Context, userID, catchID string) ([]core.Comment, error) {
	if _, err := s.visibleCatch(ctx, userID, catchID); err != nil {
		return nil, err
	}
	list, err := s.social.ListComments(ctx, catchID)
	if err != nil {
		return nil, asFetch("list comments", err)
	}
	return list, nil
}

// Feed returns the latest public catches with their like and comment counts.
func (s *SocialService) Feed(ctx context.Context, limit int) ([]core.FeedItem, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	limit = min(limit, maxFeedLimit)

	recent, err := s.catches.RecentPublic(ctx, limit)
	if err != nil {
		return nil, asFetch("load feed", err)
	}

	items := make([]core.FeedItem, len(recent))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrency)
	for i, c := range recent {
		items[i].Catch = c
		g.Go(func() error {
			likes, err := s.social.CountLikes(gctx, c.ID)
			if err != nil {
				return err
			}
			comments, err := s.social.CountComments(gctx, c.ID)
			if err != nil {
				return err
			}
			items[i].LikesCount = likes
			items[i].CommentsCount = comments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, asFetch("count feed reactions", err)
	}
	return items, nil
}

// Leaderboard ranks public catches inside window by metric. Results are
// cached per window and metric for the configured TTL.
func (s *SocialService) Leaderboard(ctx context.Context, window stats.Window, metric stats.Metric, currentUser string) (LeaderboardResult, error) {
	key := string(window) + "|" + string(metric)
	entries, err := s.boards.Get(ctx, key, func(ctx context.Context) ([]stats.LeaderboardEntry, error) {
		now := s.now()
		since, _ := window.Since(now)
		public, err := s.catches.ListPublicSince(ctx, since)
		if err != nil {
			return nil, asFetch("load leaderboard", err)
		}
		return stats.Leaderboard(public, stats.LeaderboardOptions{Window: window, Metric: metric, Now: now}), nil
	})
	if err != nil {
		return LeaderboardResult{}, err
	}
	return LeaderboardResult{
		Window:  window,
		Metric:  metric,
		Entries: entries,
		MyRank:  stats.Rank(entries, currentUser),
	}, nil
}

func (s *SocialService) RequestFriend(ctx context.Context, userID, friendID string) (core.Friendship, error) {
	f := core.Friendship{
		UserID:    userID,
		FriendID:  strings.TrimSpace(friendID),
		Status:    core.FriendshipPending,
		CreatedAt: s.now(),
	}
	if err := f.Validate(); err != nil {
		return core.Friendship{}, err
	}
	saved, err := s.social.CreateFriendship(ctx, f)
	if errors.Is(err, core.ErrConflict) {
		var cleared bool
		if cleared, err = s.dropRejected(ctx, userID, f.FriendID); err == nil {
			if cleared {
				saved, err = s.social.CreateFriendship(ctx, f)
			} else {
				err = &core.PersistenceError{Op: "create friendship", Err: core.ErrConflict}
			}
		}
	}
	if err != nil {
		return core.Friendship{}, asPersistence("request friend", err)
	}
	s.logger.InfoContext(ctx, "Friend request sent", applog.FieldUserID, userID, "friend_id", saved.FriendID)
	dispatch(ctx, s.bg, s.notifier, friendRequestNotification(saved.FriendID, userID, s.now()))
	return saved, nil
}

// dropRejected deletes a rejected friendship between the pair so a new
// request can replace it. Pending and accepted ones are left alone.
func (s *SocialService) dropRejected(ctx context.Context, userID, friendID string) (bool, error) {
	list, err := s.social.ListFriendships(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, f := range list {
		if f.Involves(friendID) && f.Status == core.FriendshipRejected {
			if err := s.social.DeleteFriendship(ctx, f.ID); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// RespondFriend accepts or rejects a pending request addressed to userID.
func (s *SocialService) RespondFriend(ctx context.Context, userID, friendshipID string, accept bool) (core.Friendship, error) {
	f, err := s.social.GetFriendship(ctx, friendshipID)
	if err != nil {
		return core.Friendship{}, err
	}
	if f.FriendID != userID {
		return core.Friendship{}, &core.NotFoundError{Kind: "friendship", ID: friendshipID}
	}
	if f.Status != core.FriendshipPending {
		return core.Friendship{}, &core.ValidationError{Field: "status", Reason: "request already answered"}
	}

	status := core.FriendshipRejected
	if accept {
		status = core.FriendshipAccepted
	}
	updated, err := s.social.UpdateFriendshipStatus(ctx, friendshipID, status)
	if err != nil {
		return core.Friendship{}, asPersistence("respond friend", err)
	}
	if accept {
		dispatch(ctx, s.bg, s.notifier, friendAcceptedNotification(f.UserID, userID, s.now()))
	}
	return updated, nil
}

// RemoveFriend deletes a friendship or request userID is part of.
func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendshipID string) error {
	f, err := s.social.GetFriendship(ctx, friendshipID)
	if err != nil {
		return err
	}
	if !f.Involves(userID) {
		return &core.NotFoundError{Kind: "friendship", ID: friendshipID}
	}
	return s.social.DeleteFriendship(ctx, friendshipID)
}

func (s *SocialService) Friends(ctx context.Context, userID string) (FriendList, error) {
	all, err := s.social.ListFriendships(ctx, userID)
	if err != nil {
		return FriendList{}, asFetch("list friends", err)
	}
	out := FriendList{
		Accepted: []core.Friendship{},
		Incoming: []core.Friendship{},
		Outgoing: []core.Friendship{},
	}
	for _, f := range all {
		switch {
		case f.Status == core.FriendshipAccepted:
			out.Accepted = append(out.Accepted, f)
		case f.Status != core.FriendshipPending:
		case f.FriendID == userID:
			out.Incoming = append(out.Incoming, f)
		default:
			out.Outgoing = append(out.Outgoing, f)
		}
	}
	return out, nil
}

// Wait blocks until dispatched notifications have finished.
func (s *SocialService) Wait() {
	s.bg.Wait()
}
