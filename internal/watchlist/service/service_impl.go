package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/streamgate/internal/changefeed"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/observability/metrics"
	"github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Feed    changefeed.Feed
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	feed    changefeed.Feed
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("watchlist.service"),
		repo:    p.Repo,
		feed:    p.Feed,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Add(ctx context.Context, principalID string, title domain.Title) (*domain.Entry, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, domain.ErrInvalidPrincipal
	}
	titleID := strings.TrimSpace(title.ID)
	if titleID == "" {
		return nil, domain.ErrInvalidTitle
	}

	entry := &domain.Entry{
		PrincipalID:  principalID,
		TitleID:      titleID,
		Name:         strings.TrimSpace(title.Name),
		PosterPath:   title.PosterPath,
		BackdropPath: title.BackdropPath,
		MediaKind:    domain.NormalizeMediaKind(title.MediaKind),
		Overview:     title.Overview,
		AddedAt:      s.clock.Now(),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.RecordWatchlistChange(ctx, "add")
	s.publish(ctx, principalID, changefeed.KindUpsert)
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, principalID, titleID string) error {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return domain.ErrInvalidPrincipal
	}
	titleID = strings.TrimSpace(titleID)
	if titleID == "" {
		return domain.ErrInvalidTitle
	}
	if err := s.repo.Delete(ctx, principalID, titleID); err != nil {
		return err
	}
	s.metrics.RecordWatchlistChange(ctx, "remove")
	s.publish(ctx, principalID, changefeed.KindDelete)
	return nil
}

func (s *Service) List(ctx context.Context, principalID string) ([]domain.Entry, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return []domain.Entry{}, nil
	}
	items, err := s.repo.List(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Entry{}
	}
	return items, nil
}

func (s *Service) Observe(ctx context.Context, principalID string) <-chan []domain.Entry {
	principalID = strings.TrimSpace(principalID)
	out := make(chan []domain.Entry, 1)
	if principalID == "" {
		out <- []domain.Entry{}
		go func() {
			<-ctx.Done()
			close(out)
		}()
		return out
	}

	log := s.log.With(zap.String("principal_id", principalID))
	changes, err := s.feed.Subscribe(ctx, changefeed.WatchlistTopic(principalID))
	if err != nil {
		log.Error("watchlist feed unavailable", zap.Error(err))
		changes = nil
	}

	go func() {
		defer close(out)
		for {
			items, err := s.List(ctx, principalID)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Error("watchlist read failed", zap.Error(err))
				items = []domain.Entry{}
			}
			select {
			case out <- items:
			case <-ctx.Done():
				return
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					<-ctx.Done()
					return
				}
			}
		}
	}()
	return out
}

func (s *Service) publish(ctx context.Context, principalID, kind string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, changefeed.NewChange(changefeed.WatchlistTopic(principalID), kind)); err != nil {
		s.log.Warn("failed to publish watchlist change", zap.String("principal_id", principalID), zap.Error(err))
	}
}
