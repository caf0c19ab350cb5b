package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/storage"
	"github.com/google/uuid"
)

const exportPrefix = "exports/results/"

type resultsExport struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Results     []models.ResultView `json:"results"`
	Standings   []models.Standing   `json:"standings"`
}

type ExportService struct {
	cache    *ResultsCache
	uploader storage.FileUploader
	logger   *slog.Logger
	now      func() time.Time
}

// NewExportService: uploader == nil отключает экспорт.
func NewExportService(cache *ResultsCache, uploader storage.FileUploader, logger *slog.Logger) *ExportService {
	return &ExportService{
		cache:    cache,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

// Export выгружает текущие результаты и рейтинг одним JSON-файлом.
func (s *ExportService) Export(ctx context.Context, sess SessionContext) (*storage.UploadResult, error) {
	if !SessionPermissions(sess).Has(PermissionExportResults) {
		return nil, newDialog(DialogFailure, titleNoPermission, "No tienes permisos para exportar resultados.", ErrForbiddenOperation)
	}
	if s.uploader == nil {
		return nil, ErrExportUnavailable
	}

	results, err := s.cache.GetAggregatedResults(withSession(ctx, sess))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	body, err := json.Marshal(resultsExport{
		GeneratedAt: now,
		Results:     results,
		Standings:   ComputeStandings(results),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	key := fmt.Sprintf("%s%s-%s.json", exportPrefix, now.Format("2006-01-02"), uuid.NewString())
	uploaded, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	s.logger.InfoContext(ctx, "results exported", slog.String("key", key), slog.Int("results", len(results)))
	return uploaded, nil
}
