package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/streamgate/internal/catalog/cache"
	"github.com/smallbiznis/streamgate/internal/catalog/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	mu      sync.Mutex
	rows    map[domain.Category][]domain.Title
	fail    map[domain.Category]error
	calls   map[domain.Category]int
	details atomic.Int32
	gate    chan struct{}
}

func newStubSource() *stubSource {
	return &stubSource{
		rows:  map[domain.Category][]domain.Title{},
		fail:  map[domain.Category]error{},
		calls: map[domain.Category]int{},
	}
}

func (s *stubSource) FetchCategory(_ context.Context, category domain.Category) ([]domain.Title, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[category]++
	if err := s.fail[category]; err != nil {
		return nil, err
	}
	return s.rows[category], nil
}

func (s *stubSource) FetchDetail(_ context.Context, mediaKind, id string) (*domain.Detail, error) {
	s.details.Add(1)
	return &domain.Detail{Title: domain.Title{ID: id, MediaKind: mediaKind, Name: "t" + id}, TrailerKey: "k"}, nil
}

func (s *stubSource) callCount(category domain.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[category]
}

func newTestService(t *testing.T, source domain.Source, fake *clock.FakeClock) *Service {
	t.Helper()
	cfg := config.DefaultGateConfig()
	cfg.CatalogCacheTTL = time.Minute
	svc := New(Params{
		Log:    zap.NewNop(),
		Source: source,
		Cache:  cache.NewMemory(fake),
		Holder: config.NewStaticGateConfigHolder(cfg),
	}).(*Service)
	svc.pick = func(int) int { return 0 }
	return svc
}

func TestRowCachesUntilTTL(t *testing.T) {
	fake := clock.NewFakeClock(time.Now())
	source := newStubSource()
	source.rows[domain.CategoryComedy] = []domain.Title{{ID: "1", Name: "Airplane!"}}
	svc := newTestService(t, source, fake)
	ctx := context.Background()

	first, err := svc.Row(ctx, domain.CategoryComedy)
	require.NoError(t, err)
	second, err := svc.Row(ctx, domain.CategoryComedy)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.callCount(domain.CategoryComedy))

	fake.Advance(time.Minute)
	_, err = svc.Row(ctx, domain.CategoryComedy)
	require.NoError(t, err)
	assert.Equal(t, 2, source.callCount(domain.CategoryComedy))
}

func TestRowRejectsUnknownCategory(t *testing.T) {
	svc := newTestService(t, newStubSource(), clock.NewFakeClock(time.Now()))
	_, err := svc.Row(context.Background(), domain.Category("westerns"))
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestRowCoalescesConcurrentMisses(t *testing.T) {
	source := newStubSource()
	source.rows[domain.CategoryHorror] = []domain.Title{{ID: "9"}}
	source.gate = make(chan struct{})
	svc := newTestService(t, source, clock.NewFakeClock(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Row(context.Background(), domain.CategoryHorror)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(source.gate)
	wg.Wait()

	assert.LessOrEqual(t, source.callCount(domain.CategoryHorror), 2)
}

func TestHomeKeepsRowOrderAndDegradesFailedRows(t *testing.T) {
	source := newStubSource()
	source.rows[domain.CategoryOriginals] = []domain.Title{{ID: "o1", Name: "Stranger Things"}}
	source.rows[domain.CategoryTrending] = []domain.Title{{ID: "t1"}}
	source.fail[domain.CategoryHorror] = errors.New("upstream down")
	svc := newTestService(t, source, clock.NewFakeClock(time.Now()))

	rows := []config.RowConfig{
		{Key: "trending", Title: "Trending Now"},
		{Key: config.RowKeyMyList, Title: "My List"},
		{Key: "horror", Title: "Horror"},
	}
	myList := []domain.Title{{ID: "m1"}}

	home, err := svc.Home(context.Background(), rows, myList)
	require.NoError(t, err)
	require.Len(t, home.Rows, 3)
	assert.Equal(t, "trending", home.Rows[0].Key)
	assert.Equal(t, []domain.Title{{ID: "t1"}}, home.Rows[0].Items)
	assert.Equal(t, myList, home.Rows[1].Items)
	assert.Equal(t, "horror", home.Rows[2].Key)
	assert.Empty(t, home.Rows[2].Items)
	assert.NotNil(t, home.Rows[2].Items)

	require.NotNil(t, home.Banner)
	assert.Equal(t, "o1", home.Banner.ID)
}

func TestHomeWithoutOriginalsHasNoBanner(t *testing.T) {
	source := newStubSource()
	svc := newTestService(t, source, clock.NewFakeClock(time.Now()))

	home, err := svc.Home(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, home.Banner)
	assert.Empty(t, home.Rows)
}

func TestDetailIsCached(t *testing.T) {
	source := newStubSource()
	svc := newTestService(t, source, clock.NewFakeClock(time.Now()))
	ctx := context.Background()

	first, err := svc.Detail(ctx, "tv", "42")
	require.NoError(t, err)
	assert.Equal(t, "tv", first.MediaKind)

	second, err := svc.Detail(ctx, "tv", "42")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), source.details.Load())

	_, err = svc.Detail(ctx, "movie", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
}

func TestWarmRefreshesEveryCategory(t *testing.T) {
	source := newStubSource()
	svc := newTestService(t, source, clock.NewFakeClock(time.Now()))

	require.NoError(t, svc.Warm(context.Background()))
	for _, category := range domain.Categories {
		assert.Equal(t, 1, source.callCount(category), string(category))
	}

	source.fail[domain.CategoryRomance] = errors.New("boom")
	assert.Error(t, svc.Warm(context.Background()))
}
