package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/smallbiznis/streamgate/internal/catalog/cache"
	"github.com/smallbiznis/streamgate/internal/catalog/domain"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL  = 30 * time.Minute
	rowFetchParallel = 4

	sourceCache    = "cache"
	sourceUpstream = "upstream"
	sourceError    = "error"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Source  domain.Source
	Cache   cache.Cache
	Holder  *config.GateConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	source  domain.Source
	cache   cache.Cache
	holder  *config.GateConfigHolder
	metrics *metrics.Metrics
	group   singleflight.Group
	pick    func(n int) int
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("catalog.service"),
		source:  p.Source,
		cache:   p.Cache,
		holder:  p.Holder,
		metrics: p.Metrics,
		pick:    rand.IntN,
	}
}

func (s *Service) ttl() time.Duration {
	if s.holder == nil {
		return defaultCacheTTL
	}
	if ttl := s.holder.Get().CatalogCacheTTL; ttl > 0 {
		return ttl
	}
	return defaultCacheTTL
}

func (s *Service) Row(ctx context.Context, category domain.Category) ([]domain.Title, error) {
	if _, err := domain.ParseCategory(string(category)); err != nil {
		return nil, err
	}
	key := "row:" + string(category)

	var cached []domain.Title
	if ok := s.readCache(ctx, key, &cached); ok {
		s.metrics.RecordCatalogFetch(ctx, string(category), sourceCache)
		return cached, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		return s.refreshRow(context.WithoutCancel(ctx), category)
	})
	if err != nil {
		s.metrics.RecordCatalogFetch(ctx, string(category), sourceError)
		return nil, err
	}
	s.metrics.RecordCatalogFetch(ctx, string(category), sourceUpstream)
	return value.([]domain.Title), nil
}

func (s *Service) refreshRow(ctx context.Context, category domain.Category) ([]domain.Title, error) {
	titles, err := s.source.FetchCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []domain.Title{}
	}
	if err := s.cache.Set(ctx, "row:"+string(category), titles, s.ttl()); err != nil {
		s.log.Warn("failed to cache catalog row", zap.String("category", string(category)), zap.Error(err))
	}
	return titles, nil
}

func (s *Service) Home(ctx context.Context, rows []config.RowConfig, myList []domain.Title) (domain.Home, error) {
	home := domain.Home{Rows: make([]domain.Row, len(rows))}
	var banner []domain.Title

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rowFetchParallel)

	g.Go(func() error {
		titles, err := s.Row(gctx, domain.CategoryOriginals)
		if err != nil {
			s.log.Warn("banner row unavailable", zap.Error(err))
			return nil
		}
		banner = titles
		return nil
	})

	for i, row := range rows {
		home.Rows[i] = domain.Row{Key: row.Key, Title: row.Title, Items: []domain.Title{}}
		if row.Key == config.RowKeyMyList {
			if myList != nil {
				home.Rows[i].Items = myList
			}
			continue
		}
		g.Go(func() error {
			category, err := domain.ParseCategory(row.Key)
			if err != nil {
				s.log.Warn("unknown catalog row", zap.String("key", row.Key))
				return nil
			}
			titles, err := s.Row(gctx, category)
			if err != nil {
				s.log.Warn("catalog row unavailable", zap.String("category", row.Key), zap.Error(err))
				return nil
			}
			home.Rows[i].Items = titles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return home, err
	}
	if err := ctx.Err(); err != nil {
		return home, err
	}
	if len(banner) > 0 {
		chosen := banner[s.pick(len(banner))]
		home.Banner = &chosen
	}
	return home, nil
}

func (s *Service) Detail(ctx context.Context, mediaKind, id string) (*domain.Detail, error) {
	if id == "" {
		return nil, domain.ErrInvalidTitle
	}
	if mediaKind != "tv" {
		mediaKind = "movie"
	}
	key := fmt.Sprintf("detail:%s:%s", mediaKind, id)

	var cached domain.Detail
	if ok := s.readCache(ctx, key, &cached); ok {
		return &cached, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		detail, err := s.source.FetchDetail(context.WithoutCancel(ctx), mediaKind, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, detail, s.ttl()); err != nil {
			s.log.Warn("failed to cache title detail", zap.String("key", key), zap.Error(err))
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*domain.Detail), nil
}

func (s *Service) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rowFetchParallel)
	for _, category := range domain.Categories {
		g.Go(func() error {
			if _, err := s.refreshRow(gctx, category); err != nil {
				return fmt.Errorf("warm %s: %w", category, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) readCache(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}
