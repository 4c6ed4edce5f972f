package knora

import (
	"context"
	"net/http"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jfxdev/go-knora/request"
)

// registryAuth returns the credentials and cookies of the current session.
func registryAuth(s *session) []request.RequestOption {
	return []request.RequestOption{
		request.WithBasicAuth(s.user, s.password),
		request.WithCookies(s.cookies),
	}
}

func (kc *Client) endTiming(stats *ExecStats) {
	if _, err := stats.End(); err != nil {
		kc.logger.Warn("timing not recorded", zap.String("category", stats.Name()), zap.Error(err))
	}
}

// CreateResource posts params to the registry and returns the new resource id.
// Every failure wraps ErrNoResult and is never retried.
func (kc *Client) CreateResource(ctx context.Context, params Document) (string, error) {
	if kc.config.DryRun {
		return kc.dryRunID(), nil
	}

	kc.registryTimings.Start()

	s := kc.currentSession()
	if s == nil {
		kc.registryTimings.Reset()
		err := noResult("create resource", 0, notLoggedIn())
		kc.logger.Error("creation of resource failed", zap.Any("params", params), zap.Error(err))
		return "", err
	}

	kc.logger.Debug("create resource", zap.Any("params", params))

	opts := append(registryAuth(s), request.WithJSON(params))
	resp, err := kc.send(ctx, ServiceRegistry, "create_resource", kc.registry, http.MethodPost, resourcesPath, opts...)
	if err != nil {
		kc.registryTimings.Reset()
		kc.logger.Error("creation of resource failed",
			zap.Any("params", params),
			zap.String("cause", string(ClassifyCause(err))),
			zap.Error(err))
		return "", noResult("create resource", 0, err)
	}
	if !resp.IsSuccess() {
		kc.registryTimings.Reset()
		kc.logRegistryFailure("creation of resource failed", resp, zap.Any("params", params))
		return "", noResult("create resource", resp.StatusCode(), nil)
	}

	kc.endTiming(kc.registryTimings)

	id := gjson.GetBytes(resp.Body(), "res_id")
	if !id.Exists() || id.Type != gjson.String {
		err := malformedResponse(ServiceRegistry, "res_id", nil)
		kc.logger.Error("creation of resource returned no id",
			zap.Any("params", params),
			zap.String("body", resp.String()))
		return "", err
	}

	return id.String(), nil
}

// Get fetches path from the registry and decodes the JSON body.
// Every failure wraps ErrNoResult and is never retried.
func (kc *Client) Get(ctx context.Context, path string) (Document, error) {
	if kc.config.DryRun {
		return Document{}, nil
	}

	kc.registryTimings.Start()

	s := kc.currentSession()
	if s == nil {
		kc.registryTimings.Reset()
		err := noResult("get", 0, notLoggedIn())
		kc.logger.Error("get failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	opts := append(registryAuth(s), request.WithHeader("Content-Type", "application/json"))
	resp, err := kc.send(ctx, ServiceRegistry, "get", kc.registry, http.MethodGet, path, opts...)
	if err != nil {
		kc.registryTimings.Reset()
		kc.logger.Error("get failed",
			zap.String("path", path),
			zap.String("cause", string(ClassifyCause(err))),
			zap.Error(err))
		return nil, noResult("get", 0, err)
	}
	if !resp.IsSuccess() {
		kc.registryTimings.Reset()
		kc.logRegistryFailure("get failed", resp, zap.String("path", path))
		return nil, noResult("get", resp.StatusCode(), nil)
	}

	kc.endTiming(kc.registryTimings)

	doc, err := ParseDocument(resp.Body())
	if err != nil {
		kc.logger.Error("get returned an undecodable body",
			zap.String("path", path),
			zap.String("body", resp.String()),
			zap.Error(err))
		return nil, malformedResponse(ServiceRegistry, "", err)
	}

	return doc, nil
}

func (kc *Client) logRegistryFailure(msg string, resp *resty.Response, fields ...zap.Field) {
	fields = append(fields,
		zap.Int("status", resp.StatusCode()),
		zap.Any("headers", resp.Header()),
		zap.String("body", resp.String()))
	kc.logger.Error(msg, fields...)
}

// MakeThumbnail uploads req.File to the asset store, which stores it and
// returns the generated file name and derived URLs. All failures are
// reported as THUMBNAIL_FAILED.
func (kc *Client) MakeThumbnail(ctx context.Context, req ThumbnailRequest) (Document, error) {
	if kc.config.DryRun {
		return Document{"filename": kc.dryRunID()}, nil
	}

	kc.assetStoreTimings.Start()

	doc, err := kc.uploadThumbnail(ctx, req)
	if err != nil {
		kc.assetStoreTimings.Reset()
		return nil, err
	}

	kc.endTiming(kc.assetStoreTimings)
	return doc, nil
}

func (kc *Client) uploadThumbnail(ctx context.Context, req ThumbnailRequest) (Document, error) {
	contentType := req.MIMEType
	if contentType == "" {
		mtype, err := mimetype.DetectFile(req.File)
		if err != nil {
			kc.logger.Error("asset store: cannot read source file", zap.String("file", req.File), zap.Error(err))
			return nil, thumbnailFailed(0, errors.Wrap(err, "mime detection failed"))
		}
		contentType = mtype.String()
	}

	f, err := os.Open(req.File)
	if err != nil {
		kc.logger.Error("asset store: cannot open source file", zap.String("file", req.File), zap.Error(err))
		return nil, thumbnailFailed(0, errors.Wrap(err, "open source file"))
	}
	defer f.Close()

	client := kc.assetStore
	if !kc.config.UseAssetStoreSession {
		client = newRestyClient(kc.config.Target.AssetStore, kc.config.RequestTimeout, kc.logger)
	}

	resp, err := kc.send(ctx, ServiceAssetStore, "make_thumbnail", client, http.MethodPost, makeThumbnailPath,
		request.WithFile("file", req.AssetFilename, contentType, f),
	)
	if err != nil {
		kc.logger.Error("asset store: failed to upload",
			zap.String("file", req.File),
			zap.String("filename", req.Filename),
			zap.String("cause", string(ClassifyCause(err))),
			zap.Error(err))
		return nil, thumbnailFailed(0, err)
	}
	if !resp.IsSuccess() {
		kc.logger.Error("asset store: failed to upload",
			zap.String("file", req.File),
			zap.String("filename", req.Filename),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return nil, thumbnailFailed(resp.StatusCode(), nil)
	}

	kc.logger.Debug("asset store: uploaded", zap.String("file", req.File))

	doc, err := ParseDocument(resp.Body())
	if err != nil {
		return nil, thumbnailFailed(resp.StatusCode(), malformedResponse(ServiceAssetStore, "", err))
	}
	if _, err := doc.Filename(); err != nil {
		return nil, thumbnailFailed(resp.StatusCode(), malformedResponse(ServiceAssetStore, "filename", nil))
	}

	return doc, nil
}
