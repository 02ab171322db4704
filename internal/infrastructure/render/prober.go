// Package render загружает изображения карт, чтобы подтвердить отрисовку
// попытки fallback-цепочки на стороне сервиса.
package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/map-location-service/internal/config"
	"github.com/map-location-service/internal/domain/repository"
	apperrors "github.com/map-location-service/internal/pkg/errors"
)

type prober struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *zap.Logger
}

// NewProber создает загрузчик изображений с таймаутом на одну попытку
func NewProber(mapCfg *config.MapConfig, providersCfg *config.ProvidersConfig, logger *zap.Logger) repository.RenderProber {
	return &prober{
		httpClient: &http.Client{},
		timeout:    mapCfg.AttemptTimeout,
		userAgent:  providersCfg.NominatimUserAgent,
		logger:     logger,
	}
}

// Probe считает загрузку успешной только при статусе 200 и image/* в Content-Type
func (p *prober) Probe(ctx context.Context, url string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.ErrProviderLoad.Wrap(fmt.Errorf("create request: %w", err))
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Debug("Map image request failed", zap.Error(err))
		return apperrors.ErrProviderLoad.Wrap(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()
	// тело не нужно, но соединение переиспользуется только после вычитывания
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode != http.StatusOK {
		return apperrors.ErrProviderLoad.Wrap(fmt.Errorf("map image status %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return apperrors.ErrProviderLoad.Wrap(fmt.Errorf("unexpected content type %q", contentType))
	}

	return nil
}
