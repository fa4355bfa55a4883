package middleware

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/config"
    "github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

const secret = "test-secret"

func ok(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"success": true, "user": UserID(c), "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/admin", ok, JWTAuth(secret), RequireRole("admin"))

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/admin", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"success":false,"message":"missing bearer token"}`, rec.Body.String())

    req := httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

    userTok, err := utils.NewAccessToken(secret, "u1", "user", 5)
    require.NoError(t, err)
    req = httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("Authorization", "Bearer "+userTok.Token)
    assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

    adminTok, err := utils.NewAccessToken(secret, "a1", "admin", 5)
    require.NoError(t, err)
    req = httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("Authorization", "Bearer "+adminTok.Token)
    rec = serve(e, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"success":true,"user":"a1","role":"admin"}`, rec.Body.String())
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
    req.RemoteAddr = "10.0.0.1:5555"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/users/login")

    cfg := config.RateLimitConfig{Prefix: "rl"}
    assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /api/users/login", buildRateKey(cfg, c))

    c.Set(ctxUserID, "u7")
    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:u7", buildRateKey(cfg, c))
    cfg.KeyStrategy = "IP"
    assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))
}

func TestTokenBucket(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 5, RefillTokens: 1,
        RefillInterval: time.Second, TTL: time.Minute, KeyStrategy: "ip", Prefix: "rl"}
    now := time.UnixMilli(1_700_000_000_000)
    b := &tokenBucket{cfg: cfg, rdb: rdb, log: zap.NewNop(), now: func() time.Time { return now }}

    e := echo.New()
    e.GET("/x", ok, b.middleware)
    hash := tokenBucketScript.Hash()
    key := []string{"rl:ip:10.0.0.1"}

    mock.ExpectEvalSha(hash, key, b.args(now)...).SetVal([]interface{}{int64(1), int64(4), int64(0)})
    mock.ExpectEvalSha(hash, key, b.args(now)...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
    mock.ExpectEvalSha(hash, key, b.args(now)...).SetErr(errors.New("redis down"))

    req := func() *http.Request {
        r := httptest.NewRequest(http.MethodGet, "/x", nil)
        r.RemoteAddr = "10.0.0.1:1"
        return r
    }

    rec := serve(e, req())
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

    rec = serve(e, req())
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("Retry-After"))

    rec = serve(e, req())
    assert.Equal(t, http.StatusOK, rec.Code, "redis errors fail open")

    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewTokenBucket_DisabledPassesThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", ok, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
    assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

func cacheCfg() config.CacheConfig {
    return config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}
}

func TestCacheKeyFrom_UsesConcretePath(t *testing.T) {
    e := echo.New()
    a := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/get-movie/a", nil), nil)
    b := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/get-movie/b", nil), nil)
    a.SetPath("/api/movies/get-movie/:id")
    b.SetPath("/api/movies/get-movie/:id")
    assert.NotEqual(t, cacheKeyFrom(cacheCfg(), a), cacheKeyFrom(cacheCfg(), b))
    assert.Regexp(t, `^cache:[0-9a-f]{40}$`, cacheKeyFrom(cacheCfg(), a))
}

func TestPayloadRoundTrip(t *testing.T) {
    h := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(200, h, []byte(`{"a":1}`))
    require.NoError(t, err)
    status, hdr, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, 200, status)
    assert.Equal(t, "application/json", hdr.Get("Content-Type"))
    assert.Equal(t, `{"a":1}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
}

func TestRedisCache_HitSkipsHandler(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    e := echo.New()
    calls := 0
    e.GET("/movies", func(c echo.Context) error {
        calls++
        return c.String(http.StatusOK, "fresh")
    }, NewRedisCache(cacheCfg(), rdb, nil))

    req := httptest.NewRequest(http.MethodGet, "/movies", nil)
    key := cacheKeyFrom(cacheCfg(), e.NewContext(req, nil))
    payload, err := encodePayload(200, http.Header{"Content-Type": {"text/plain"}}, []byte("cached"))
    require.NoError(t, err)
    mock.ExpectGet(key).SetVal(string(payload))

    rec := serve(e, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "cached", rec.Body.String())
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.Equal(t, 0, calls)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_HitKeepsCurrentRequestID(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    e := echo.New()
    setID := func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Response().Header().Set(echo.HeaderXRequestID, "req-new")
            return next(c)
        }
    }
    e.GET("/movies", func(c echo.Context) error {
        return c.String(http.StatusOK, "fresh")
    }, setID, NewRedisCache(cacheCfg(), rdb, nil))

    req := httptest.NewRequest(http.MethodGet, "/movies", nil)
    key := cacheKeyFrom(cacheCfg(), e.NewContext(req, nil))
    stored := http.Header{"Content-Type": {"text/plain"}, echo.HeaderXRequestID: {"req-old"}}
    payload, err := encodePayload(200, stored, []byte("cached"))
    require.NoError(t, err)
    mock.ExpectGet(key).SetVal(string(payload))

    rec := serve(e, req)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.Equal(t, []string{"req-new"}, rec.Header().Values(echo.HeaderXRequestID))
    assert.Equal(t, "text/plain", rec.Header().Get(echo.HeaderContentType))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissCallsHandler(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    e := echo.New()
    e.GET("/movies", func(c echo.Context) error {
        return c.String(http.StatusOK, "fresh")
    }, NewRedisCache(cacheCfg(), rdb, nil))

    req := httptest.NewRequest(http.MethodGet, "/movies", nil)
    mock.ExpectGet(cacheKeyFrom(cacheCfg(), e.NewContext(req, nil))).RedisNil()

    rec := serve(e, req)
    assert.Equal(t, "fresh", rec.Body.String())
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestRedisCache_IgnoresOtherMethods(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    e := echo.New()
    e.POST("/movies", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewRedisCache(cacheCfg(), rdb, nil))

    rec := serve(e, httptest.NewRequest(http.MethodPost, "/movies", nil))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOnWrite(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    e := echo.New()
    e.POST("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, PurgeOnWrite(cacheCfg(), rdb, nil))
    e.POST("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) }, PurgeOnWrite(cacheCfg(), rdb, nil))

    mock.ExpectScan(0, "cache:*", 100).SetVal([]string{"cache:a", "cache:b"}, 7)
    mock.ExpectDel("cache:a", "cache:b").SetVal(2)
    mock.ExpectScan(7, "cache:*", 100).SetVal([]string{}, 0)

    assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/ok", nil)).Code)
    assert.Equal(t, http.StatusBadRequest, serve(e, httptest.NewRequest(http.MethodPost, "/bad", nil)).Code)
    assert.NoError(t, mock.ExpectationsWereMet())
}
