package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

const statsCacheTTL = 10 * time.Minute

type reviewService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReviewService(repo repositories.Repository, cm *cache.CacheManager, logger *slog.Logger, v *validator.Validator) ReviewService {
	return &reviewService{
		repo:      repo,
		cache:     cm,
		logger:    logger,
		validator: v,
	}
}

// Create inserts a review, enforcing at most one per author and course
// offering. The tuple is pre-checked for a friendly error and the unique
// index backs it up against races.
func (s *reviewService) Create(ctx context.Context, actor *models.User, req CreateReviewRequest) (*ReviewResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	courseCode := strings.ToUpper(strings.TrimSpace(req.CourseCode))
	professor := strings.TrimSpace(req.Professor)
	semester := models.Semester(req.Semester)

	if _, err := s.repo.Review().GetByTuple(ctx, courseCode, professor, req.Year, semester, actor.ID); err == nil {
		return nil, ErrDuplicateReview
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	review := &models.CourseReview{
		CourseCode: courseCode,
		CourseName: strings.TrimSpace(req.CourseName),
		Professor:  professor,
		Year:       req.Year,
		Semester:   semester,
		Overall:    req.Overall,
		Difficulty: req.Difficulty,
		Workload:   req.Workload,
		Usefulness: req.Usefulness,
		Comment:    strings.TrimSpace(req.Comment),
		Anonymous:  req.Anonymous,
		AuthorID:   actor.ID,
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Review().Create(ctx, review); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrDuplicateReview
			}
			return err
		}
		return tx.Course().Upsert(ctx, &models.Course{Code: courseCode, Name: review.CourseName})
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, courseCode)
	s.logger.Info("review created", "review_id", review.ID, "course_code", courseCode, "author_id", actor.ID)

	review.Author = actor
	return s.response(review, actor), nil
}

func (s *reviewService) GetByID(ctx context.Context, actor *models.User, id uint) (*ReviewResponse, error) {
	review, err := s.getReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(review, actor), nil
}

func (s *reviewService) List(ctx context.Context, actor *models.User, filters repositories.ReviewFilters) (*ReviewListResponse, error) {
	reviews, total, err := s.repo.Review().List(ctx, filters)
	if err != nil {
		return nil, err
	}

	responses := make([]*ReviewResponse, len(reviews))
	for i := range reviews {
		responses[i] = s.response(&reviews[i], actor)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &ReviewListResponse{Reviews: responses, Total: total, Page: page, Size: size}, nil
}

// Update edits ratings and comment. The identifying tuple is immutable;
// reviewing a different offering means a new review. Only the author may
// edit; admins moderate by deleting, never by rewriting someone's opinion.
func (s *reviewService) Update(ctx context.Context, actor *models.User, id uint, req UpdateReviewRequest) (*ReviewResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	review, err := s.getReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.ID != review.AuthorID {
		return nil, NewPermissionError("edit this review")
	}

	if req.Overall != nil {
		review.Overall = *req.Overall
	}
	if req.Difficulty != nil {
		review.Difficulty = *req.Difficulty
	}
	if req.Workload != nil {
		review.Workload = *req.Workload
	}
	if req.Usefulness != nil {
		review.Usefulness = *req.Usefulness
	}
	if req.Comment != nil {
		review.Comment = strings.TrimSpace(*req.Comment)
	}
	if req.Anonymous != nil {
		review.Anonymous = *req.Anonymous
	}

	if err := s.repo.Review().Update(ctx, review); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, review.CourseCode)
	return s.response(review, actor), nil
}

func (s *reviewService) Delete(ctx context.Context, actor *models.User, id uint) error {
	review, err := s.getReview(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, review.AuthorID) {
		return NewPermissionError("delete this review")
	}

	if err := s.repo.Review().Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	s.invalidateStats(ctx, review.CourseCode)
	s.logger.Info("review deleted", "review_id", id, "actor_id", actor.ID)
	return nil
}

// CourseStatistics aggregates ratings for a course, served cache-aside.
func (s *reviewService) CourseStatistics(ctx context.Context, courseCode string) (*models.CourseStatistics, error) {
	courseCode = strings.ToUpper(strings.TrimSpace(courseCode))

	var stats models.CourseStatistics
	err := s.cache.Stats.GetOrFetch(ctx, courseCode, &stats, statsCacheTTL, func() (interface{}, error) {
		return s.repo.Review().Statistics(ctx, courseCode)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *reviewService) ListCourses(ctx context.Context, search string, limit, offset int) (*CourseListResponse, error) {
	courses, total, err := s.repo.Course().List(ctx, search, limit, offset)
	if err != nil {
		return nil, err
	}
	return &CourseListResponse{Courses: courses, Total: total}, nil
}

func (s *reviewService) getReview(ctx context.Context, id uint) (*models.CourseReview, error) {
	review, err := s.repo.Review().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// response hides the author of anonymous reviews from everyone except the
// author and admins.
func (s *reviewService) response(review *models.CourseReview, actor *models.User) *ReviewResponse {
	resp := &ReviewResponse{CourseReview: review}

	if review.Anonymous && !canManage(actor, review.AuthorID) {
		resp.CourseReview.AuthorID = 0
	} else {
		info := uploaderInfo(review.Author)
		resp.Author = &info
	}
	resp.CourseReview.Author = nil
	return resp
}

func (s *reviewService) invalidateStats(ctx context.Context, courseCode string) {
	_ = s.cache.Stats.Delete(ctx, courseCode)
}
