package knora

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// API is the capability shared by Client and RetryingClient.
type API interface {
	Login(ctx context.Context, user, password string) error
	CreateResource(ctx context.Context, params Document) (string, error)
	Get(ctx context.Context, path string) (Document, error)
	MakeThumbnail(ctx context.Context, req ThumbnailRequest) (Document, error)
}

// Client talks to a registry and its asset store with one session each.
type Client struct {
	mu         sync.RWMutex
	config     Config
	registry   *resty.Client
	assetStore *resty.Client
	session    *session
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *Metrics

	registryTimings   *ExecStats
	assetStoreTimings *ExecStats

	lastDryRun int64
}

// Config contains runtime client settings.
type Config struct {
	Target Target
	DryRun bool
	// UseAssetStoreSession reuses the logged-in asset store session for
	// uploads instead of sending one-off requests.
	UseAssetStoreSession bool
	// Source is an optional reference to the import's source data.
	Source         string
	RequestTimeout time.Duration
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit float64
	Logger    *zap.Logger
	Metrics   *Metrics
}

// session is the state produced by a successful Login.
type session struct {
	token    string
	cookies  []*http.Cookie
	user     string
	password string
}

// ThumbnailRequest describes one file to upload to the asset store.
type ThumbnailRequest struct {
	// File is the local path of the source file.
	File string
	// MIMEType is detected from the file content when empty.
	MIMEType string
	// Filename is the logical name used in logs.
	Filename string
	// AssetFilename is the name the asset store receives.
	AssetFilename string
}

// Document is a schema-less JSON document exchanged with both services.
type Document map[string]any

// ParseDocument decodes a JSON object.
func ParseDocument(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "error decoding response")
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// String returns the string stored under key.
func (d Document) String(key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", malformedResponse("", key, nil)
	}
	s, ok := v.(string)
	if !ok {
		return "", malformedResponse("", key, nil)
	}
	return s, nil
}

// Filename returns the asset store's generated file name.
func (d Document) Filename() (string, error) {
	return d.String("filename")
}
