package server

import (
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"github.com/smallbiznis/streamgate/internal/watchlist/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutWatchlistItemMapsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	watchlist := mocks.NewMockService(ctrl)
	h.server.watchlist = watchlist

	watchlist.EXPECT().
		Add(gomock.Any(), "user_1", gomock.Any()).
		DoAndReturn(func(_ any, _ string, title watchlistdomain.Title) (*watchlistdomain.Entry, error) {
			assert.Equal(t, "42", title.ID)
			assert.Equal(t, "Heat", title.Name)
			require.NotNil(t, title.PosterPath)
			assert.Equal(t, "/p.jpg", *title.PosterPath)
			assert.Nil(t, title.Overview)
			return &watchlistdomain.Entry{TitleID: title.ID, Name: title.Name, MediaKind: "movie"}, nil
		})

	rec := h.do(http.MethodPut, "/api/watchlist/42", `{"name":" Heat ","poster_path":"/p.jpg"}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", decode(t, rec)["title_id"])
}

func TestPutWatchlistItemInvalidTitle(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	watchlist := mocks.NewMockService(ctrl)
	h.server.watchlist = watchlist

	watchlist.EXPECT().
		Add(gomock.Any(), "user_1", gomock.Any()).
		Return(nil, watchlistdomain.ErrInvalidTitle)

	rec := h.do(http.MethodPut, "/api/watchlist/42", `{}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteWatchlistItem(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	watchlist := mocks.NewMockService(ctrl)
	h.server.watchlist = watchlist

	watchlist.EXPECT().Remove(gomock.Any(), "user_1", "42").Return(nil)

	rec := h.do(http.MethodDelete, "/api/watchlist/42", "", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListWatchlistEmptyIsArray(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	watchlist := mocks.NewMockService(ctrl)
	h.server.watchlist = watchlist

	watchlist.EXPECT().List(gomock.Any(), "user_1").Return(nil, nil)

	rec := h.do(http.MethodGet, "/api/watchlist", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"items":[]}`, rec.Body.String())
}
