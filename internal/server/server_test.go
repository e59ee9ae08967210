package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/streamgate/internal/authorization"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/streamgate/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/streamgate/internal/checkout/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/gate"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/smallbiznis/streamgate/internal/identity/session"
	"github.com/smallbiznis/streamgate/internal/modal"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testToken = "tok_user_1"

type stubIdentity struct {
	identitydomain.Service
	principal *identitydomain.Principal
	signedOut []string
}

func (s *stubIdentity) Authenticate(_ context.Context, raw string) (*identitydomain.Principal, error) {
	if raw != testToken || s.principal == nil {
		return nil, identitydomain.ErrInvalidSession
	}
	return s.principal, nil
}

func (s *stubIdentity) SignIn(_ context.Context, req identitydomain.SignInRequest) (*identitydomain.SignInResult, error) {
	if req.IDToken != "good" {
		return nil, identitydomain.ErrInvalidToken
	}
	return &identitydomain.SignInResult{
		Principal: identitydomain.Principal{ID: "user_1"},
		RawToken:  testToken,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *stubIdentity) SignOut(_ context.Context, raw string) error {
	s.signedOut = append(s.signedOut, raw)
	return nil
}

func (s *stubIdentity) Provider(string) identitydomain.Provider { return quietProvider{} }

type quietProvider struct{}

func (quietProvider) Subscribe(context.Context, func(*identitydomain.Principal), func(error)) (func(), error) {
	return func() {}, nil
}

func (quietProvider) SignOut(context.Context) error { return nil }

type stubGate struct {
	updates []gate.Update
}

func (s *stubGate) Run(ctx context.Context, _ <-chan identitydomain.AuthPhase) <-chan gate.Update {
	out := make(chan gate.Update, len(s.updates))
	for _, update := range s.updates {
		out <- update
	}
	close(out)
	return out
}

type stubCatalog struct {
	catalogdomain.Service
	myList    []catalogdomain.Title
	homeCalls int
}

func (s *stubCatalog) Home(_ context.Context, rows []config.RowConfig, myList []catalogdomain.Title) (catalogdomain.Home, error) {
	s.homeCalls++
	s.myList = myList
	home := catalogdomain.Home{}
	for _, row := range rows {
		home.Rows = append(home.Rows, catalogdomain.Row{Key: row.Key, Title: row.Title, Items: []catalogdomain.Title{}})
	}
	return home, nil
}

func (s *stubCatalog) Detail(_ context.Context, kind, id string) (*catalogdomain.Detail, error) {
	if id == "missing" {
		return nil, catalogdomain.ErrTitleNotFound
	}
	return &catalogdomain.Detail{Title: catalogdomain.Title{ID: id, Name: "Heat", MediaKind: "movie"}}, nil
}

type stubWatchlist struct {
	watchlistdomain.Service
	entries []watchlistdomain.Entry
}

func (s *stubWatchlist) List(context.Context, string) ([]watchlistdomain.Entry, error) {
	return s.entries, nil
}

func (s *stubWatchlist) Observe(context.Context, string) <-chan []watchlistdomain.Entry {
	out := make(chan []watchlistdomain.Entry, 1)
	out <- s.entries
	return out
}

type stubCheckout struct {
	checkoutdomain.Service
	session *checkoutdomain.Session
	err     error
}

func (s *stubCheckout) CreateCheckout(context.Context, checkoutdomain.CreateCheckoutRequest) (*checkoutdomain.Session, error) {
	return s.session, s.err
}

type stubBilling struct {
	billingdomain.Service
	payloads [][]byte
}

func (s *stubBilling) IngestWebhook(_ context.Context, provider string, payload []byte, _ http.Header) (*billingdomain.Event, error) {
	if provider != "stripe" {
		return nil, billingdomain.ErrProviderNotFound
	}
	s.payloads = append(s.payloads, payload)
	return &billingdomain.Event{Outcome: billingdomain.EventOutcomeApplied}, nil
}

type stubAuthz struct {
	err error
}

func (s stubAuthz) Authorize(context.Context, *identitydomain.Principal, string, string) error {
	return s.err
}

type harness struct {
	engine    *gin.Engine
	server    *Server
	identity  *stubIdentity
	gate      *stubGate
	catalog   *stubCatalog
	watchlist *stubWatchlist
	checkout  *stubCheckout
	billing   *stubBilling
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		identity:  &stubIdentity{principal: &identitydomain.Principal{ID: "user_1", Email: "a@example.com"}},
		gate:      &stubGate{},
		catalog:   &stubCatalog{},
		watchlist: &stubWatchlist{},
		checkout:  &stubCheckout{},
		billing:   &stubBilling{},
	}
	cfg := config.DefaultGateConfig()
	cfg.Rows = []config.RowConfig{{Key: "originals", Title: "Originals"}, {Key: config.RowKeyMyList, Title: "My List"}}

	h.server = &Server{
		log:       zap.NewNop(),
		holder:    config.NewStaticGateConfigHolder(cfg),
		identity:  h.identity,
		sessions:  session.NewManager(config.Config{}),
		gate:      h.gate,
		billing:   h.billing,
		checkout:  h.checkout,
		catalog:   h.catalog,
		watchlist: h.watchlist,
		modals:    modal.NewRegistry(modal.Params{Log: zap.NewNop(), Clock: clock.New()}),
		authz:     stubAuthz{},
		heartbeat: time.Hour,
	}

	h.engine = gin.New()
	h.engine.Use(ErrorHandlingMiddleware())
	h.server.RegisterRoutes(h.engine)
	return h
}

func (h *harness) do(method, path, body string, signedIn bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if signedIn {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: testToken})
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, rec)
	payload, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error payload: %s", rec.Body.String())
	return payload
}

func TestGateWaitsForSettledState(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{
		{State: gate.StateResolving},
		{State: gate.StateAuthenticatedNoAccess},
		{State: gate.StateAuthenticatedRedirecting, Effects: []gate.Effect{{Navigate: gate.TargetPlanSelection}}},
	}

	rec := h.do(http.MethodGet, "/api/gate", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "authenticated_redirecting", body["state"])
	assert.Equal(t, "/plan", body["navigate_to"])
	assert.Equal(t, false, body["granted"])
}

func TestGateUnauthenticatedPointsToLogin(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{{State: gate.StateResolving}, {State: gate.StateUnauthenticated}}

	rec := h.do(http.MethodGet, "/api/gate", "", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/login", decode(t, rec)["navigate_to"])
}

func TestGateClosedBeforeSettledIsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{{State: gate.StateResolving}}

	rec := h.do(http.MethodGet, "/api/gate", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, h.catalog.homeCalls)
}

func TestHomeRedirectsWithoutSubscription(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{{State: gate.StateAuthenticatedRedirecting}}

	rec := h.do(http.MethodGet, "/api/home", "", true)

	require.Equal(t, http.StatusForbidden, rec.Code)
	payload := errorBody(t, rec)
	assert.Equal(t, "subscription_required", payload["type"])
	assert.Equal(t, "/plan", payload["navigate_to"])
	assert.NotContains(t, rec.Body.String(), `"rows"`)
	assert.Zero(t, h.catalog.homeCalls)
}

func TestHomeRequiresSignIn(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{{State: gate.StateUnauthenticated}}

	rec := h.do(http.MethodGet, "/api/home", "", false)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", errorBody(t, rec)["navigate_to"])
	assert.Zero(t, h.catalog.homeCalls)
}

func TestHomeUnavailable(t *testing.T) {
	h := newHarness(t)
	h.gate.updates = []gate.Update{{State: gate.StateUnavailable}}

	rec := h.do(http.MethodGet, "/api/home", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHomeGrantedRendersRowsWithMyList(t *testing.T) {
	h := newHarness(t)
	poster := "/p.jpg"
	h.watchlist.entries = []watchlistdomain.Entry{{TitleID: "42", Name: "Heat", PosterPath: &poster, MediaKind: "movie"}}
	h.gate.updates = []gate.Update{{
		State:     gate.StateAuthenticatedGranted,
		Principal: h.identity.principal,
	}}

	rec := h.do(http.MethodGet, "/api/home", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "authenticated_granted", body["state"])
	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, h.catalog.homeCalls)
	require.Len(t, h.catalog.myList, 1)
	assert.Equal(t, "42", h.catalog.myList[0].ID)
	assert.Equal(t, "/p.jpg", h.catalog.myList[0].PosterPath)
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/auth/session", `{"id_token":"bad"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/auth/session", `{"id_token":"good"}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, testToken, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = h.do(http.MethodGet, "/auth/me", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/auth/logout", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{testToken}, h.identity.signedOut)
}

func TestSignedInRoutesRejectAnonymous(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/watchlist", "/api/account", "/api/plans", "/api/modal", "/auth/me"} {
		rec := h.do(http.MethodGet, path, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCheckoutSurfacesProviderMessage(t *testing.T) {
	h := newHarness(t)
	message := "Your card was declined."
	h.checkout.session = &checkoutdomain.Session{ID: 9, Status: checkoutdomain.StatusFailed, Error: &message}
	h.checkout.err = checkoutdomain.ErrSessionFailed

	rec := h.do(http.MethodPost, "/api/checkout", `{"plan_id":"prod_basic"}`, true)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	payload := errorBody(t, rec)
	assert.Equal(t, "billing_provider_error", payload["type"])
	assert.Equal(t, message, payload["message"])
}

func TestCheckoutReturnsURL(t *testing.T) {
	h := newHarness(t)
	url := "https://checkout.example.com/c/1"
	h.checkout.session = &checkoutdomain.Session{ID: 7, Status: checkoutdomain.StatusReady, URL: &url}

	rec := h.do(http.MethodPost, "/api/checkout", `{"plan_id":"prod_basic"}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, url, body["url"])
	assert.Equal(t, "7", body["session_id"])
}

func TestCheckoutValidatesPlan(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/checkout", `{}`, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorBody(t, rec)["type"])
}

func TestCheckoutTimeout(t *testing.T) {
	h := newHarness(t)
	h.checkout.err = checkoutdomain.ErrAwaitTimeout

	rec := h.do(http.MethodPost, "/api/checkout", `{"plan_id":"prod_basic"}`, true)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestModalOpenCloseKeepsCurrent(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/modal", `{"title_id":"42","media_kind":"movie"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["open"])

	rec = h.do(http.MethodDelete, "/api/modal", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["open"])
	assert.NotNil(t, body["current"])

	rec = h.do(http.MethodPost, "/api/modal", `{"title_id":"missing"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchlistItemMembership(t *testing.T) {
	h := newHarness(t)
	h.watchlist.entries = []watchlistdomain.Entry{{TitleID: "42", Name: "Heat", MediaKind: "movie"}}

	rec := h.do(http.MethodGet, "/api/watchlist/42", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["saved"])

	rec = h.do(http.MethodGet, "/api/watchlist/7", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["saved"])
}

func TestWebhookIngest(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/api/payments/webhooks/stripe", `{"id":"evt_1"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "applied", decode(t, rec)["outcome"])
	require.Len(t, h.billing.payloads, 1)

	rec = h.do(http.MethodPost, "/api/payments/webhooks/paypal", `{}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesAreAuthorized(t *testing.T) {
	h := newHarness(t)
	h.server.authz = stubAuthz{err: authorization.ErrForbidden}

	rec := h.do(http.MethodGet, "/admin/billing/events", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/admin/billing/events", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMapErrorUnknownIsInternal(t *testing.T) {
	status, payload := mapError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)
}
