package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/IMSA-2025/portal-service/internal/cache"
	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/validator"
)

func newReviewTestEnv() (*memRepository, ReviewService) {
	repo := newMemRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewReviewService(repo, cache.NewCacheManager(nil), logger, validator.New())
	return repo, service
}

func validReviewRequest() CreateReviewRequest {
	return CreateReviewRequest{
		CourseCode: "IM2003",
		CourseName: "Database Systems",
		Professor:  "Dr. Chen",
		Year:       2025,
		Semester:   "1",
		Overall:    4.5,
		Difficulty: 3,
		Workload:   4,
		Usefulness: 5,
		Comment:    "Heavy but worth it.",
	}
}

func TestReviewService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and upserts the course", func(t *testing.T) {
		repo, service := newReviewTestEnv()
		author := repo.addUser(models.User{Username: "alice", Role: models.RoleMember})

		resp, err := service.Create(ctx, author, validReviewRequest())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if resp.CourseReview.ID == 0 {
			t.Error("expected persisted review to have an id")
		}
		if resp.Author == nil || resp.Author.Username != "alice" {
			t.Errorf("author = %+v, want alice", resp.Author)
		}

		if _, err := repo.Course().GetByCode(ctx, "IM2003"); err != nil {
			t.Errorf("course should be upserted on review creation: %v", err)
		}
	})

	t.Run("rejects a second review for the same offering", func(t *testing.T) {
		repo, service := newReviewTestEnv()
		author := repo.addUser(models.User{Username: "alice"})

		if _, err := service.Create(ctx, author, validReviewRequest()); err != nil {
			t.Fatalf("Create() first review error = %v", err)
		}

		req := validReviewRequest()
		req.Overall = 2
		if _, err := service.Create(ctx, author, req); !errors.Is(err, ErrDuplicateReview) {
			t.Fatalf("Create() error = %v, want ErrDuplicateReview", err)
		}
	})

	t.Run("allows the same author across different offerings", func(t *testing.T) {
		repo, service := newReviewTestEnv()
		author := repo.addUser(models.User{Username: "alice"})

		if _, err := service.Create(ctx, author, validReviewRequest()); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		req := validReviewRequest()
		req.Year = 2024
		if _, err := service.Create(ctx, author, req); err != nil {
			t.Fatalf("Create() for a different year error = %v", err)
		}

		req = validReviewRequest()
		req.Professor = "Dr. Okafor"
		if _, err := service.Create(ctx, author, req); err != nil {
			t.Fatalf("Create() for a different professor error = %v", err)
		}
	})

	t.Run("rejects out of range ratings", func(t *testing.T) {
		repo, service := newReviewTestEnv()
		author := repo.addUser(models.User{Username: "alice"})

		req := validReviewRequest()
		req.Difficulty = 6

		_, err := service.Create(ctx, author, req)
		var fieldErrors validator.FieldErrors
		if !errors.As(err, &fieldErrors) {
			t.Fatalf("Create() error = %v, want FieldErrors", err)
		}
	})
}

func TestReviewService_AnonymousAuthor(t *testing.T) {
	ctx := context.Background()
	repo, service := newReviewTestEnv()
	author := repo.addUser(models.User{Username: "alice", Role: models.RoleMember})

	req := validReviewRequest()
	req.Anonymous = true
	created, err := service.Create(ctx, author, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("hidden from other users", func(t *testing.T) {
		reader := &models.User{ID: 99, Role: models.RoleMember}
		resp, err := service.GetByID(ctx, reader, created.CourseReview.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if resp.Author != nil {
			t.Errorf("author = %+v, want hidden", resp.Author)
		}
		if resp.CourseReview.AuthorID != 0 {
			t.Error("author id should be zeroed for anonymous reviews")
		}
	})

	t.Run("visible to the author", func(t *testing.T) {
		resp, err := service.GetByID(ctx, author, created.CourseReview.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if resp.Author == nil || resp.Author.Username != "alice" {
			t.Errorf("author = %+v, want alice", resp.Author)
		}
	})

	t.Run("visible to admins", func(t *testing.T) {
		admin := &models.User{ID: 98, Role: models.RoleAdmin}
		resp, err := service.GetByID(ctx, admin, created.CourseReview.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if resp.CourseReview.AuthorID != author.ID {
			t.Error("admins should see the author of anonymous reviews")
		}
	})
}

func TestReviewService_Update(t *testing.T) {
	ctx := context.Background()
	repo, service := newReviewTestEnv()
	author := repo.addUser(models.User{Username: "alice"})

	created, err := service.Create(ctx, author, validReviewRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("author edits ratings", func(t *testing.T) {
		overall := 2.0
		comment := "Changed my mind."
		resp, err := service.Update(ctx, author, created.CourseReview.ID, UpdateReviewRequest{
			Overall: &overall,
			Comment: &comment,
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if resp.CourseReview.Overall != 2.0 {
			t.Errorf("overall = %v, want 2.0", resp.CourseReview.Overall)
		}
		if resp.CourseReview.Comment != "Changed my mind." {
			t.Errorf("comment = %q", resp.CourseReview.Comment)
		}
		if resp.CourseReview.Difficulty != 3 {
			t.Error("untouched ratings must be preserved")
		}
	})

	t.Run("non-author is rejected", func(t *testing.T) {
		other := &models.User{ID: 99, Role: models.RoleMember}
		overall := 1.0
		_, err := service.Update(ctx, other, created.CourseReview.ID, UpdateReviewRequest{Overall: &overall})
		var permissionError *PermissionError
		if !errors.As(err, &permissionError) {
			t.Fatalf("Update() error = %v, want PermissionError", err)
		}
	})

	t.Run("admins cannot rewrite reviews", func(t *testing.T) {
		admin := &models.User{ID: 98, Role: models.RoleAdmin}
		overall := 1.0
		_, err := service.Update(ctx, admin, created.CourseReview.ID, UpdateReviewRequest{Overall: &overall})
		var permissionError *PermissionError
		if !errors.As(err, &permissionError) {
			t.Fatalf("Update() error = %v, want PermissionError", err)
		}

		stored, _ := repo.Review().GetByID(ctx, created.CourseReview.ID)
		if stored.Overall == 1.0 {
			t.Error("review must be unchanged after a denied edit")
		}
	})
}

func TestReviewService_Delete(t *testing.T) {
	ctx := context.Background()
	repo, service := newReviewTestEnv()
	author := repo.addUser(models.User{Username: "alice"})
	admin := repo.addUser(models.User{Username: "root", Role: models.RoleAdmin})

	first, _ := service.Create(ctx, author, validReviewRequest())
	secondReq := validReviewRequest()
	secondReq.Year = 2024
	second, _ := service.Create(ctx, author, secondReq)

	if err := service.Delete(ctx, author, first.CourseReview.ID); err != nil {
		t.Fatalf("Delete() by author error = %v", err)
	}
	if err := service.Delete(ctx, admin, second.CourseReview.ID); err != nil {
		t.Fatalf("Delete() by admin error = %v", err)
	}
	if err := service.Delete(ctx, author, first.CourseReview.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("Delete() of removed review = %v, want ErrReviewNotFound", err)
	}
}

func TestReviewService_CourseStatistics(t *testing.T) {
	ctx := context.Background()
	repo, service := newReviewTestEnv()

	for i, overall := range []float64{5, 4, 3} {
		author := repo.addUser(models.User{Username: "user" + string(rune('a'+i))})
		req := validReviewRequest()
		req.Overall = overall
		if _, err := service.Create(ctx, author, req); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	stats, err := service.CourseStatistics(ctx, "im2003")
	if err != nil {
		t.Fatalf("CourseStatistics() error = %v", err)
	}
	if stats.ReviewCount != 3 {
		t.Errorf("review count = %d, want 3", stats.ReviewCount)
	}
	if math.Abs(stats.AvgOverall-4.0) > 1e-9 {
		t.Errorf("avg overall = %v, want 4.0", stats.AvgOverall)
	}
}
