package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/events"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/storage"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

const examCacheTTL = 5 * time.Minute

type examService struct {
	repo      repositories.Repository
	store     storage.FileStore
	publisher events.Publisher
	cache     *cache.CacheManager
	uploadCfg config.UploadConfig
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, store storage.FileStore, publisher events.Publisher, cm *cache.CacheManager, uploadCfg config.UploadConfig, logger *slog.Logger, v *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		cache:     cm,
		uploadCfg: uploadCfg,
		logger:    logger,
		validator: v,
	}
}

// Create runs the upload pipeline: validate, store the file, persist the
// record. Only admins author the exam archive. If the record insert fails
// the stored file is removed so no orphan survives a partial upload.
func (s *examService) Create(ctx context.Context, actor *models.User, req CreateExamRequest, upload Upload) (*ExamResponse, error) {
	if !actor.IsAdmin() {
		return nil, NewPermissionError("upload exams")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := checkUpload(upload, actor, s.uploadCfg); err != nil {
		return nil, err
	}

	courseCode := strings.ToUpper(strings.TrimSpace(req.CourseCode))
	semester := models.Semester(req.Semester)

	dir := s.store.ExamDir(req.Year, semester, courseCode)
	storedName := storage.AllocateName(upload.FileName)

	info, err := s.store.Store(ctx, dir, storedName, upload.Content)
	if err != nil {
		return nil, &StorageError{Op: "store", Err: err}
	}

	exam := &models.Exam{
		CourseCode: courseCode,
		CourseName: strings.TrimSpace(req.CourseName),
		Professor:  req.Professor,
		Year:       req.Year,
		Semester:   semester,
		ExamType:   models.ExamType(req.ExamType),
		FilePath:   info.Path,
		FileName:   storage.SanitizeFilename(upload.FileName),
		FileSize:   info.Size,
		UploaderID: actor.ID,
	}

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		if delErr := s.store.Delete(ctx, info.Path); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Error("orphan file left after failed insert", "path", info.Path, "error", delErr)
		}
		return nil, err
	}

	s.upsertCourse(ctx, courseCode, exam.CourseName)
	s.publish(events.TypeExamUploaded, actor.ID, map[string]interface{}{
		"exam_id":     exam.ID,
		"course_code": exam.CourseCode,
	})
	s.logger.Info("exam uploaded", "exam_id", exam.ID, "uploader_id", actor.ID, "size", info.Size)

	exam.Uploader = actor
	return s.response(exam, actor), nil
}

func (s *examService) GetByID(ctx context.Context, actor *models.User, id uint) (*ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(exam, actor), nil
}

func (s *examService) List(ctx context.Context, actor *models.User, filters repositories.ExamFilters) (*ExamListResponse, error) {
	exams, total, err := s.repo.Exam().List(ctx, filters)
	if err != nil {
		return nil, err
	}

	responses := make([]*ExamResponse, len(exams))
	for i := range exams {
		responses[i] = s.response(&exams[i], actor)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &ExamListResponse{Exams: responses, Total: total, Page: page, Size: size}, nil
}

// Update changes metadata only. The stored file is untouched even when the
// year or course changes; the record's path stays authoritative.
func (s *examService) Update(ctx context.Context, actor *models.User, id uint, req UpdateExamRequest) (*ExamResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, exam.UploaderID) {
		return nil, NewPermissionError("edit this exam")
	}

	if req.CourseCode != nil {
		exam.CourseCode = strings.ToUpper(strings.TrimSpace(*req.CourseCode))
	}
	if req.CourseName != nil {
		exam.CourseName = strings.TrimSpace(*req.CourseName)
	}
	if req.Professor != nil {
		exam.Professor = req.Professor
	}
	if req.Year != nil {
		exam.Year = *req.Year
	}
	if req.Semester != nil {
		exam.Semester = models.Semester(*req.Semester)
	}
	if req.ExamType != nil {
		exam.ExamType = models.ExamType(*req.ExamType)
	}

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.response(exam, actor), nil
}

// ReplaceFile swaps the stored file: the new file is stored first, then the
// record is repointed, and only then is the old file deleted. A failure
// mid-way leaves the record on a valid file.
func (s *examService) ReplaceFile(ctx context.Context, actor *models.User, id uint, upload Upload) (*ExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, exam.UploaderID) {
		return nil, NewPermissionError("replace this file")
	}
	if err := checkUpload(upload, actor, s.uploadCfg); err != nil {
		return nil, err
	}

	dir := s.store.ExamDir(exam.Year, exam.Semester, exam.CourseCode)
	storedName := storage.AllocateName(upload.FileName)

	info, err := s.store.Store(ctx, dir, storedName, upload.Content)
	if err != nil {
		return nil, &StorageError{Op: "store", Err: err}
	}

	oldPath := exam.FilePath
	exam.FilePath = info.Path
	exam.FileName = storage.SanitizeFilename(upload.FileName)
	exam.FileSize = info.Size

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		if delErr := s.store.Delete(ctx, info.Path); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			s.logger.Error("orphan file left after failed repoint", "path", info.Path, "error", delErr)
		}
		return nil, err
	}

	if err := s.store.Delete(ctx, oldPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("old file not removed after replace", "path", oldPath, "error", err)
	}

	s.invalidate(ctx, id)
	s.logger.Info("exam file replaced", "exam_id", id, "actor_id", actor.ID)
	return s.response(exam, actor), nil
}

// Delete removes the file first, best-effort, then the record. A file that
// cannot be deleted is logged and orphaned rather than blocking the delete.
func (s *examService) Delete(ctx context.Context, actor *models.User, id uint) error {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, exam.UploaderID) {
		return NewPermissionError("delete this exam")
	}

	if err := s.store.Delete(ctx, exam.FilePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("file not removed during delete", "path", exam.FilePath, "error", err)
	}

	if err := s.repo.Exam().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrExamNotFound
		}
		return err
	}

	s.invalidate(ctx, id)
	s.publish(events.TypeExamDeleted, actor.ID, map[string]interface{}{"exam_id": id})
	s.logger.Info("exam deleted", "exam_id", id, "actor_id", actor.ID)
	return nil
}

// Download streams the exam file to a paid member. The counter is bumped
// only after every guard has passed and the file is open, so failed
// downloads are never counted.
func (s *examService) Download(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error) {
	if !actor.IsPaid() {
		return nil, NewPaymentRequiredError("download exams")
	}

	result, exam, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Exam().IncrementDownloadCount(ctx, exam.ID); err != nil {
		s.logger.Warn("download count not incremented", "exam_id", exam.ID, "error", err)
	}
	s.invalidate(ctx, exam.ID)
	s.publish(events.TypeExamDownloaded, actor.ID, map[string]interface{}{"exam_id": exam.ID})

	return result, nil
}

// Preview streams the file behind the same paid gate as Download but never
// touches the download counter.
func (s *examService) Preview(ctx context.Context, actor *models.User, id uint) (*DownloadResult, error) {
	if !actor.IsPaid() {
		return nil, NewPaymentRequiredError("preview exams")
	}

	result, _, err := s.open(ctx, id)
	return result, err
}

func (s *examService) open(ctx context.Context, id uint) (*DownloadResult, *models.Exam, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	content, info, err := s.store.Open(ctx, exam.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("exam record points at missing file", "exam_id", id, "path", exam.FilePath)
			return nil, nil, ErrFileMissing
		}
		return nil, nil, &StorageError{Op: "open", Err: err}
	}

	return &DownloadResult{
		FileName: exam.FileName,
		Size:     info.Size,
		Content:  content,
	}, exam, nil
}

func (s *examService) getExam(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := s.cache.Exam.GetOrFetch(ctx, cacheKeyID(id), &exam, examCacheTTL, func() (interface{}, error) {
		found, err := s.repo.Exam().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return found, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (s *examService) response(exam *models.Exam, actor *models.User) *ExamResponse {
	manage := canManage(actor, exam.UploaderID)
	resp := &ExamResponse{
		Exam:      exam,
		Uploader:  uploaderInfo(exam.Uploader),
		CanEdit:   manage,
		CanDelete: manage,
	}
	resp.Exam.Uploader = nil
	return resp
}

func (s *examService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Exam.Delete(ctx, cacheKeyID(id))
}

func (s *examService) upsertCourse(ctx context.Context, code, name string) {
	if err := s.repo.Course().Upsert(ctx, &models.Course{Code: code, Name: name}); err != nil {
		s.logger.Warn("course upsert failed", "course_code", code, "error", err)
	}
}

func (s *examService) publish(eventType string, actorID uint, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(eventType, actorID, data); err != nil {
		s.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}
