package tasks

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/grouping"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
)

// Remote limits on playlist metadata.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 300
)

// State is the outcome of reconciling one show group.
type State int

const (
	// NoTracks means the group had nothing to sync and no remote call was made.
	NoTracks State = iota
	// Created means no owned playlist existed and one was created.
	Created
	// Updated means an owned playlist was cleared and refilled.
	Updated
	// UpToDate means the owned playlist already carried the group's watermark and was left alone.
	UpToDate
)

func (s State) String() string {
	switch s {
	case NoTracks:
		return "no_tracks"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case UpToDate:
		return "up_to_date"
	default:
		return ""
	}
}

// ReconcileResult describes a reconciled group that produced a playlist.
type ReconcileResult struct {
	State     State
	Playlist  models.PlaylistRecord
	Tracks    int
	Removed   int
	Add       AddResult
	Watermark uint64
}

// ReconcilerOptions tune a [PlaylistReconciler].
type ReconcilerOptions struct {
	Rules OwnershipRules
	// SkipCurrent leaves a playlist alone when its watermark is at least the group's.
	SkipCurrent bool
	Now         func() time.Time
}

// PlaylistReconciler decides, per show group, between creating and refreshing the
// group's playlist, and drives the batcher accordingly.
//
// It is not safe for concurrent use; groups are reconciled one at a time.
type PlaylistReconciler struct {
	svc     services.PlaylistService
	auth    services.Authenticator
	batcher *TrackBatcher
	opts    ReconcilerOptions
	logger  *log.Logger

	userID string
	index  *OwnershipIndex
}

// NewPlaylistReconciler creates a reconciler. auth is used once per creation rejected with 401.
func NewPlaylistReconciler(svc services.PlaylistService, auth services.Authenticator, batcher *TrackBatcher, opts ReconcilerOptions, logger *log.Logger) *PlaylistReconciler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PlaylistReconciler{svc: svc, auth: auth, batcher: batcher, opts: opts, logger: logger}
}

// UserID returns the id of the authenticated user, fetching it on first use.
func (r *PlaylistReconciler) UserID(ctx context.Context) (string, error) {
	if r.userID != "" {
		return r.userID, nil
	}
	user, err := r.svc.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("identify user: %w", err)
	}
	r.userID = user.ID
	return r.userID, nil
}

// Refresh rebuilds the ownership index from the remote listing.
func (r *PlaylistReconciler) Refresh(ctx context.Context) (*OwnershipIndex, error) {
	userID, err := r.UserID(ctx)
	if err != nil {
		return nil, err
	}
	index, err := LoadOwnershipIndex(ctx, r.svc, userID, r.opts.Rules)
	if err != nil {
		return nil, err
	}
	r.index = index
	return index, nil
}

// Index returns the index built by the latest [PlaylistReconciler.Refresh], or nil.
func (r *PlaylistReconciler) Index() *OwnershipIndex { return r.index }

// Validate checks name and description against the remote limits.
func Validate(name, description string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		return fmt.Errorf("%w: playlist name must be 1-%d characters, got %d", shared.ErrValidation, MaxNameLength, n)
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLength {
		return fmt.Errorf("%w: playlist description must be at most %d characters, got %d", shared.ErrValidation, MaxDescriptionLength, n)
	}
	return nil
}

// Reconcile syncs one group. A nil result with a nil error means the group had no tracks.
func (r *PlaylistReconciler) Reconcile(ctx context.Context, g models.ShowGroup) (*ReconcileResult, error) {
	tracks := grouping.Dedupe(g.Episodes)
	name := grouping.PlaylistName(g.Station, g.Title)
	watermark := grouping.Watermark(g.Episodes)
	logger := r.logger.With("playlist", name)

	if len(tracks) == 0 {
		logger.Info("no tracks, skipping")
		return nil, nil
	}

	index, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	description := grouping.Description(g, r.opts.Now())
	res := &ReconcileResult{Tracks: len(tracks), Watermark: watermark}

	if existing, ok := index.ByName(name); ok {
		return r.update(ctx, logger, existing, tracks, description, res)
	}
	return r.create(ctx, logger, name, tracks, description, res)
}

func (r *PlaylistReconciler) update(ctx context.Context, logger *log.Logger, existing models.PlaylistRecord, tracks []models.Track, description string, res *ReconcileResult) (*ReconcileResult, error) {
	if r.opts.SkipCurrent {
		if current, ok := grouping.ParseWatermark(existing.Description); ok && current >= res.Watermark {
			logger.Info("playlist is current", "watermark", current)
			res.State = UpToDate
			res.Playlist = existing
			return res, nil
		}
	}

	logger.Info("updating playlist", "id", existing.ID, "from", existing.Watermark, "to", res.Watermark)

	removed, err := r.batcher.Clear(ctx, existing.ID)
	res.Removed = removed
	if err != nil {
		return nil, err
	}

	res.Add, err = r.batcher.AddTracks(ctx, existing.ID, tracks)
	if err != nil {
		return nil, err
	}

	if err := r.svc.UpdateDescription(ctx, existing.ID, description); err != nil {
		return nil, fmt.Errorf("update description of %s: %w", existing.ID, err)
	}

	existing.Description = description
	existing.Watermark = res.Watermark
	existing.TrackCount = res.Add.Added
	r.index.Put(existing)

	res.State = Updated
	res.Playlist = existing
	return res, nil
}

func (r *PlaylistReconciler) create(ctx context.Context, logger *log.Logger, name string, tracks []models.Track, description string, res *ReconcileResult) (*ReconcileResult, error) {
	if err := Validate(name, description); err != nil {
		return nil, err
	}

	userID, err := r.UserID(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("creating playlist", "watermark", res.Watermark)
	created, err := r.svc.CreatePlaylist(ctx, userID, name, description)
	if shared.IsUnauthorized(err) && r.auth != nil {
		logger.Warn("create rejected, reauthenticating once")
		if _, authErr := r.auth.Acquire(ctx); authErr != nil {
			return nil, authErr
		}
		created, err = r.svc.CreatePlaylist(ctx, userID, name, description)
		if shared.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: create %q rejected after reauthentication: %w", shared.ErrAuth, name, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}

	rec := Record(*created)
	rec.Watermark = res.Watermark
	r.index.Put(rec)

	res.Add, err = r.batcher.AddTracks(ctx, rec.ID, tracks)
	if err != nil {
		return nil, err
	}

	rec.TrackCount = res.Add.Added
	r.index.Put(rec)

	res.State = Created
	res.Playlist = rec
	return res, nil
}
