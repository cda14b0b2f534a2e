package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/events"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/storage"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

const sheetCacheTTL = 5 * time.Minute

type cheatSheetService struct {
	repo      repositories.Repository
	store     storage.FileStore
	publisher events.Publisher
	cache     *cache.CacheManager
	uploadCfg config.UploadConfig
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCheatSheetService(repo repositories.Repository, store storage.FileStore, publisher events.Publisher, cm *cache.CacheManager, uploadCfg config.UploadConfig, logger *slog.Logger, v *validator.Validator) CheatSheetService {
	return &cheatSheetService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		cache:     cm,
		uploadCfg: uploadCfg,
		logger:    logger,
		validator: v,
	}
}

// Create mirrors the exam upload pipeline. Cheat sheets are admin-authored
// too; only the download gate differs.
func (s *cheatSheetService) Create(ctx context.Context, actor *models.User, req CreateCheatSheetRequest, upload Upload) (*CheatSheetResponse, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError("upload cheat sheets")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkUpload(upload, actor, s.uploadCfg); err != nil {
		return nil, err
	}

	courseCode := strings.ToUpper(strings.TrimSpace(req.CourseCode))
	storedName := storage.AllocateName(upload.FileName)

	info, err := s.store.Store(ctx, s.store.CheatSheetDir(), storedName, upload.Content)
	if err != nil {
		return nil, &StorageError{Op: "store", Err: err}
	}

	sheet := &models.CheatSheet{
		CourseCode:  courseCode,
		CourseName:  strings.TrimSpace(req.CourseName),
		Professor:   req.Professor,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Tags:        normalizeTags(req.Tags),
		FilePath:    info.Path,
		FileName:    storage.SanitizeFilename(upload.FileName),
		FileSize:    info.Size,
		UploaderID:  actor.ID,
	}

	if err := s.repo.CheatSheet().Create(ctx, sheet); err != nil {
		if delErr := s.store.Delete(ctx, info.Path); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Error("orphan file left after failed insert", "path", info.Path, "error", delErr)
		}
		return nil, err
	}

	s.upsertCourse(ctx, courseCode, sheet.CourseName)
	s.publish(events.TypeSheetUploaded, actor.ID, map[string]interface{}{
		"cheat_sheet_id": sheet.ID,
		"course_code":    sheet.CourseCode,
	})
	s.logger.Info("cheat sheet uploaded", "cheat_sheet_id", sheet.ID, "uploader_id", actor.ID)

	sheet.Uploader = actor
	return s.response(sheet, actor), nil
}

func (s *cheatSheetService) GetByID(ctx context.Context, actor *models.User, id uint) (*CheatSheetResponse, error) {
	sheet, err := s.getSheet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(sheet, actor), nil
}

func (s *cheatSheetService) List(ctx context.Context, actor *models.User, filters repositories.CheatSheetFilters) (*CheatSheetListResponse, error) {
	sheets, total, err := s.repo.CheatSheet().List(ctx, filters)
	if err != nil {
		return nil, err
	}

	responses := make([]*CheatSheetResponse, len(sheets))
	for i := range sheets {
		responses[i] = s.response(&sheets[i], actor)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &CheatSheetListResponse{CheatSheets: responses, Total: total, Page: page, Size: size}, nil
}

func (s *cheatSheetService) Update(ctx context.Context, actor *models.User, id uint, req UpdateCheatSheetRequest) (*CheatSheetResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sheet, err := s.getSheet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, sheet.UploaderID) {
		return nil, NewPermissionError("edit this cheat sheet")
	}

	if req.CourseCode != nil {
		sheet.CourseCode = strings.ToUpper(strings.TrimSpace(*req.CourseCode))
	}
	if req.CourseName != nil {
		sheet.CourseName = strings.TrimSpace(*req.CourseName)
	}
	if req.Professor != nil {
		sheet.Professor = req.Professor
	}
	if req.Title != nil {
		sheet.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		sheet.Description = req.Description
	}
	if req.Tags != nil {
		sheet.Tags = normalizeTags(req.Tags)
	}

	if err := s.repo.CheatSheet().Update(ctx, sheet); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.response(sheet, actor), nil
}

// ReplaceFile swaps the stored file: the new file is stored first, then the
// record is repointed, and only then is the old file deleted. A failure
// mid-way leaves the record on a valid file.
func (s *cheatSheetService) ReplaceFile(ctx context.Context, actor *models.User, id uint, upload Upload) (*CheatSheetResponse, error) {
	sheet, err := s.getSheet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, sheet.UploaderID) {
		return nil, NewPermissionError("replace this file")
	}
	if err := checkUpload(upload, actor, s.uploadCfg); err != nil {
		return nil, err
	}

	storedName := storage.AllocateName(upload.FileName)
	info, err := s.store.Store(ctx, s.store.CheatSheetDir(), storedName, upload.Content)
	if err != nil {
		return nil, &StorageError{Op: "store", Err: err}
	}

	oldPath := sheet.FilePath
	sheet.FilePath = info.Path
	sheet.FileName = storage.SanitizeFilename(upload.FileName)
	sheet.FileSize = info.Size

	if err := s.repo.CheatSheet().Update(ctx, sheet); err != nil {
		if delErr := s.store.Delete(ctx, info.Path); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Error("orphan file left after failed repoint", "path", info.Path, "error", delErr)
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, oldPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("old file not removed after replace", "path", oldPath, "error", err)
	}

	s.invalidate(ctx, id)
	s.logger.Info("cheat sheet file replaced", "cheat_sheet_id", id, "actor_id", actor.ID)
	return s.response(sheet, actor), nil
}

func (s *cheatSheetService) Delete(ctx context.Context, actor *models.User, id uint) error {
	sheet, err := s.getSheet(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, sheet.UploaderID) {
		return NewPermissionError("delete this cheat sheet")
	}

	if err := s.store.Delete(ctx, sheet.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("file not removed during delete", "path", sheet.FilePath, "error", err)
	}

	if err := s.repo.CheatSheet().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrCheatSheetNotFound
		}
		return err
	}

	s.invalidate(ctx, id)
	s.publish(events.TypeSheetDeleted, actor.ID, map[string]interface{}{"cheat_sheet_id": id})
	s.logger.Info("cheat sheet deleted", "cheat_sheet_id", id, "actor_id", actor.ID)
	return nil
}

// Download streams the file and counts it. Cheat sheets are open to every
// authenticated user; only exams sit behind the paid gate.
func (s *cheatSheetService) Download(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error) {
	result, sheet, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CheatSheet().IncrementDownloadCount(ctx, sheet.ID); err != nil {
		s.logger.Warn("download count not incremented", "cheat_sheet_id", sheet.ID, "error", err)
	}
	s.invalidate(ctx, sheet.ID)
	s.publish(events.TypeSheetDownloaded, actor.ID, map[string]interface{}{"cheat_sheet_id": sheet.ID})

	return result, nil
}

// Preview streams the file without touching the download counter.
func (s *cheatSheetService) Preview(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error) {
	result, _, err := s.open(ctx, id)
	return result, err
}

func (s *cheatSheetService) open(ctx context.Context, id uint) (*DownloadResult, *models.CheatSheet, error) {
	sheet, err := s.getSheet(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	content, info, err := s.store.Open(ctx, sheet.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("cheat sheet record points at missing file", "cheat_sheet_id", id, "path", sheet.FilePath)
			return nil, nil, ErrFileMissing
		}
		return nil, nil, &StorageError{Op: "open", Err: err}
	}

	return &DownloadResult{
		FileName: sheet.FileName,
		Size:     info.Size,
		Content:  content,
	}, sheet, nil
}

func (s *cheatSheetService) getSheet(ctx context.Context, id uint) (*models.CheatSheet, error) {
	var sheet models.CheatSheet
	err := s.cache.Sheet.GetOrFetch(ctx, cacheKeyID(id), &sheet, sheetCacheTTL, func() (interface{}, error) {
		found, err := s.repo.CheatSheet().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return found, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCheatSheetNotFound
		}
		return nil, err
	}
	return &sheet, nil
}

func (s *cheatSheetService) response(sheet *models.CheatSheet, actor *models.User) *CheatSheetResponse {
	manage := canManage(actor, sheet.UploaderID)
	resp := &CheatSheetResponse{
		CheatSheet: sheet,
		Uploader:   uploaderInfo(sheet.Uploader),
		CanEdit:    manage,
		CanDelete:  manage,
	}
	resp.CheatSheet.Uploader = nil
	return resp
}

func (s *cheatSheetService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Sheet.Delete(ctx, cacheKeyID(id))
}

func (s *cheatSheetService) upsertCourse(ctx context.Context, code, name string) {
	if err := s.repo.Course().Upsert(ctx, &models.Course{Code: code, Name: name}); err != nil {
		s.logger.Warn("course upsert failed", "course_code", code, "error", err)
	}
}

func (s *cheatSheetService) publish(eventType string, actorID uint, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, actorID, data); err != nil {
		s.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}

// normalizeTags trims, lowercases and de-duplicates tags, preserving order.
func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return datatypes.NewJSONSlice(out)
}
