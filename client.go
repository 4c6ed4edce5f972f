package knora

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jfxdev/go-knora/request"
)

// DefaultRequestTimeout bounds every request when Config.RequestTimeout is zero.
const DefaultRequestTimeout = 30 * time.Second

const (
	sessionPath       = "/v1/session"
	resourcesPath     = "/v1/resources"
	assetLoginPath    = "/Knora_login"
	makeThumbnailPath = "/make_thumbnail"
)

// New creates a client for the given target. No request is sent until Login.
func New(config Config) (*Client, error) {
	if !config.DryRun {
		if config.Target.Registry == "" || config.Target.AssetStore == "" {
			return nil, ConfigurationError("target needs both a registry and an asset store URL")
		}
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(1, int(config.RateLimit)))
	}

	return &Client{
		config:            config,
		registry:          newRestyClient(config.Target.Registry, config.RequestTimeout, logger),
		assetStore:        newRestyClient(config.Target.AssetStore, config.RequestTimeout, logger),
		limiter:           limiter,
		logger:            logger,
		metrics:           config.Metrics,
		registryTimings:   NewExecStats(string(ServiceRegistry)),
		assetStoreTimings: NewExecStats(string(ServiceAssetStore)),
	}, nil
}

func newRestyClient(baseURL string, timeout time.Duration, logger *zap.Logger) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetLogger(logger.Sugar()).
		SetHeader("User-Agent", "go-knora/1.0")
}

// Login opens a registry session with Basic credentials and forwards the
// session token to the asset store. If the asset store refuses it, the
// registry session is dropped again and LOGIN_FAILED[assetstore] is returned.
func (kc *Client) Login(ctx context.Context, user, password string) error {
	kc.logger.Info(kc.assetStoreTimings.LogStart(), zap.Time("session_start", time.Now()))

	if kc.config.DryRun {
		return nil
	}

	kc.clearSession()

	resp, err := kc.send(ctx, ServiceRegistry, "login", kc.registry, http.MethodPost, sessionPath,
		request.WithBasicAuth(user, password),
	)
	if err != nil {
		kc.logger.Error("registry login failed",
			zap.String("user", user),
			zap.String("cause", string(ClassifyCause(err))),
			zap.Error(err))
		return loginFailed(ServiceRegistry, 0, err)
	}
	if !resp.IsSuccess() {
		kc.logger.Error("registry login failed",
			zap.String("user", user),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return loginFailed(ServiceRegistry, resp.StatusCode(), nil)
	}

	token := sessionToken(resp.Header().Get("Set-Cookie"))
	if token == "" {
		kc.logger.Error("registry login returned no session cookie", zap.String("user", user))
		return loginFailed(ServiceRegistry, resp.StatusCode(), errors.New("missing Set-Cookie session token"))
	}

	cookies := append(resp.Cookies(), &http.Cookie{Name: "sid", Value: token})
	kc.setSession(&session{
		token:    token,
		cookies:  cookies,
		user:     user,
		password: password,
	})

	resp, err = kc.send(ctx, ServiceAssetStore, "login", kc.assetStore, http.MethodPost, assetLoginPath,
		request.WithFormData(map[string]string{"sid": token}),
	)
	if err != nil || !resp.IsSuccess() {
		status := 0
		fields := []zap.Field{zap.String("user", user)}
		if err != nil {
			fields = append(fields, zap.String("cause", string(ClassifyCause(err))), zap.Error(err))
		} else {
			status = resp.StatusCode()
			fields = append(fields, zap.Int("status", status), zap.String("body", resp.String()))
		}
		kc.logger.Error("asset store login failed, dropping registry session", fields...)
		kc.clearSession()
		return loginFailed(ServiceAssetStore, status, err)
	}

	kc.logger.Debug("logged in", zap.String("user", user))
	return nil
}

// sessionToken extracts the value of the first cookie pair in a Set-Cookie header.
func sessionToken(header string) string {
	pair, _, _ := strings.Cut(header, ";")
	_, value, found := strings.Cut(pair, "=")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}

func (kc *Client) setSession(s *session) {
	kc.mu.Lock()
	kc.session = s
	kc.mu.Unlock()
}

// clearSession forgets the session and the cookies both services handed out.
func (kc *Client) clearSession() {
	kc.setSession(nil)
	for _, rc := range []*resty.Client{kc.registry, kc.assetStore} {
		jar, _ := cookiejar.New(nil)
		rc.SetCookieJar(jar)
	}
}

func (kc *Client) currentSession() *session {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	return kc.session
}

// LoggedIn reports whether both services accepted the last Login.
func (kc *Client) LoggedIn() bool {
	return kc.currentSession() != nil
}

// send runs one request after the rate limiter admits it, tagging it with a
// request id and recording its duration.
func (kc *Client) send(ctx context.Context, service Service, operation string, client *resty.Client, method, path string, opts ...request.RequestOption) (*resty.Response, error) {
	requestID := uuid.NewString()
	opts = append(opts,
		request.WithContext(ctx),
		request.WithHeader("X-Request-ID", requestID),
		request.WithPreRequestHook(kc.limiter.Wait),
	)

	kc.logger.Debug("request",
		zap.String("service", string(service)),
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID))

	start := time.Now()
	resp, err := request.Do(client, method, path, opts...)
	kc.metrics.observe(service, operation, time.Since(start))
	if err != nil || !resp.IsSuccess() {
		kc.metrics.failure(service, operation)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s (request %s)", method, path, requestID)
	}
	return resp, nil
}

// dryRunID returns "dryRun-<unix nanos>", strictly increasing per client.
func (kc *Client) dryRunID() string {
	for {
		last := atomic.LoadInt64(&kc.lastDryRun)
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if atomic.CompareAndSwapInt64(&kc.lastDryRun, last, next) {
			return "dryRun-" + strconv.FormatInt(next, 10)
		}
	}
}

// LogTimings logs the accumulated timings of both services.
func (kc *Client) LogTimings() {
	kc.logger.Info(kc.registryTimings.String())
	kc.logger.Info(kc.assetStoreTimings.String())
}

// Timings returns the registry and asset store accumulators.
func (kc *Client) Timings() (registry, assetStore *ExecStats) {
	return kc.registryTimings, kc.assetStoreTimings
}
