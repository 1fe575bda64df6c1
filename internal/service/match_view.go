package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"matchwell/internal/domain"
	"matchwell/internal/models"

	"golang.org/x/sync/errgroup"
)

// UserDirectory resolves identities from the identity provider.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ProfileDirectory resolves public display attributes.
type ProfileDirectory interface {
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}

// ImageResolver turns a stored display image id into a deliverable URL.
type ImageResolver interface {
	ImageURL(ctx context.Context, publicID string) (string, error)
}

// Counterpart is the public identity of the other participant.
type Counterpart struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Age            *int    `json:"age"`
	Religion       *string `json:"religion"`
	Location       *string `json:"location,omitempty"`
	Profession     *string `json:"profession,omitempty"`
	ProfilePicture *string `json:"profile_picture"`
}

// InterestView is the serialized form of an interest. Exactly one of the
// counterpart fields is set, depending on which list produced the view.
type InterestView struct {
	ID          string                `json:"id"`
	FromUserID  string                `json:"from_user_id"`
	ToUserID    string                `json:"to_user_id"`
	Status      domain.InterestStatus `json:"status"`
	Message     *string               `json:"message"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	FromUser    *Counterpart          `json:"from_user,omitempty"`
	ToUser      *Counterpart          `json:"to_user,omitempty"`
	MatchedUser *Counterpart          `json:"matched_user,omitempty"`
}

// Perspective selects which participant a view is annotated with.
type Perspective int

const (
	// AsRecipient annotates with the sender (received list).
	AsRecipient Perspective = iota
	// AsSender annotates with the recipient (sent list).
	AsSender
	// AsMatch annotates with whoever is not the viewer.
	AsMatch
)

const enrichConcurrency = 8

// MatchView builds read-side projections. It never mutates state and never
// fails because a counterpart could not be resolved.
type MatchView struct {
	users    UserDirectory
	profiles ProfileDirectory
	images   ImageResolver
	log      *slog.Logger
	now      func() time.Time
}

// NewMatchView accepts a nil images resolver; pictures are then omitted.
func NewMatchView(users UserDirectory, profiles ProfileDirectory, images ImageResolver, log *slog.Logger) *MatchView {
	return &MatchView{
		users:    users,
		profiles: profiles,
		images:   images,
		log:      log.With("component", "match_view"),
		now:      time.Now,
	}
}

// NewInterestView serializes a bare interest without a counterpart.
func NewInterestView(i *models.Interest) InterestView {
	return InterestView{
		ID:         i.ID,
		FromUserID: i.FromUserID,
		ToUserID:   i.ToUserID,
		Status:     i.Status,
		Message:    i.Message,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// Project annotates each interest with the counterpart of viewerID as
// selected by p, preserving input order.
func (v *MatchView) Project(ctx context.Context, viewerID string, list []models.Interest, p Perspective) []InterestView {
	ids := make([]string, 0, len(list))
	for i := range list {
		ids = append(ids, counterpartID(&list[i], viewerID, p))
	}
	people := v.Counterparts(ctx, ids...)

	out := make([]InterestView, 0, len(list))
	for i := range list {
		view := NewInterestView(&list[i])
		cp := people[ids[i]]
		switch p {
		case AsRecipient:
			view.FromUser = cp
		case AsSender:
			view.ToUser = cp
		default:
			view.MatchedUser = cp
		}
		out = append(out, view)
	}
	return out
}

func counterpartID(i *models.Interest, viewerID string, p Perspective) string {
	switch p {
	case AsRecipient:
		return i.FromUserID
	case AsSender:
		return i.ToUserID
	default:
		return i.Counterpart(viewerID)
	}
}

// Counterparts resolves each distinct id concurrently. Ids that cannot be
// resolved map to nil.
func (v *MatchView) Counterparts(ctx context.Context, ids ...string) map[string]*Counterpart {
	out := make(map[string]*Counterpart, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			cp := v.Counterpart(gctx, id)
			mu.Lock()
			out[id] = cp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Counterpart resolves one user's public identity, degrading missing
// profile data and image lookup failures to empty fields.
func (v *MatchView) Counterpart(ctx context.Context, userID string) *Counterpart {
	u, err := v.users.GetByID(ctx, userID)
	if err != nil {
		enrichmentFailures.WithLabelValues("user").Inc()
		v.log.Warn("counterpart unavailable", "user_id", userID, "error", err)
		return nil
	}
	cp := &Counterpart{ID: u.ID, Name: u.DisplayName()}
	if u.DateOfBirth != nil {
		age := u.Age(v.now())
		cp.Age = &age
	}
	if u.Religion != "" {
		religion := u.Religion
		cp.Religion = &religion
	}

	if v.profiles == nil {
		return cp
	}
	prof, err := v.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			enrichmentFailures.WithLabelValues("profile").Inc()
			v.log.Warn("profile lookup failed", "user_id", userID, "error", err)
		}
		return cp
	}
	if prof.Location != "" {
		loc := prof.Location
		cp.Location = &loc
	}
	if prof.Profession != "" {
		prf := prof.Profession
		cp.Profession = &prf
	}
	if prof.HasProfilePicture() && v.images != nil {
		url, err := v.images.ImageURL(ctx, prof.ProfilePicturePublicID)
		if err != nil {
			enrichmentFailures.WithLabelValues("image").Inc()
			v.log.Warn("profile picture lookup failed", "user_id", userID, "error", err)
		} else if url != "" {
			cp.ProfilePicture = &url
		}
	}
	return cp
}
