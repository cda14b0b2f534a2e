package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/IMSA-2025/portal-service/internal/models"
	"github.com/IMSA-2025/portal-service/internal/repositories"
	"github.com/IMSA-2025/portal-service/internal/storage"
)

// memRepository is an in-memory repositories.Repository used to exercise
// service orchestration without a database.
type memRepository struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	users   map[uint]*models.User
	exams   map[uint]*models.Exam
	sheets  map[uint]*models.CheatSheet
	reviews map[uint]*models.CourseReview
	courses map[string]*models.Course
	nextID  uint

	failExamCreate   error
	failSheetCreate  error
	failExamUpdate   error
	failSheetUpdate  error
	failReviewCreate error
}

func newMemRepository() *memRepository {
	return &memRepository{
		users:   make(map[uint]*models.User),
		exams:   make(map[uint]*models.Exam),
		sheets:  make(map[uint]*models.CheatSheet),
		reviews: make(map[uint]*models.CourseReview),
		courses: make(map[string]*models.Course),
	}
}

func (r *memRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepository) addUser(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		u.ID = r.id()
	} else if u.ID > r.nextID {
		r.nextID = u.ID
	}
	stored := u
	r.users[stored.ID] = &stored
	return &stored
}

func (r *memRepository) addExam(e models.Exam) *models.Exam {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == 0 {
		e.ID = r.id()
	} else if e.ID > r.nextID {
		r.nextID = e.ID
	}
	stored := e
	r.exams[stored.ID] = &stored
	return &stored
}

func (r *memRepository) addSheet(s models.CheatSheet) *models.CheatSheet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		s.ID = r.id()
	} else if s.ID > r.nextID {
		r.nextID = s.ID
	}
	stored := s
	r.sheets[stored.ID] = &stored
	return &stored
}

func (r *memRepository) User() repositories.UserRepository             { return (*memUserRepo)(r) }
func (r *memRepository) Exam() repositories.ExamRepository             { return (*memExamRepo)(r) }
func (r *memRepository) CheatSheet() repositories.CheatSheetRepository { return (*memSheetRepo)(r) }
func (r *memRepository) Review() repositories.ReviewRepository         { return (*memReviewRepo)(r) }
func (r *memRepository) Course() repositories.CourseRepository         { return (*memCourseRepo)(r) }

// WithTransaction serializes callbacks the way row locks do in the real
// repository, so concurrency tests see transactional semantics.
func (r *memRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

func (r *memRepository) Ping(ctx context.Context) error { return nil }
func (r *memRepository) Close() error                   { return nil }

// ----- users -----

type memUserRepo memRepository

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email || u.StudentID == user.StudentID {
			return repositories.ErrDuplicate
		}
	}
	user.ID = (*memRepository)(r).id()
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.StudentID == studentID })
}

func (r *memUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		if filters.FeePaid != nil && u.FeePaid != *filters.FeePaid {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) CountAdmins(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, u := range r.users {
		if u.Role == models.RoleAdmin {
			count++
		}
	}
	return count, nil
}

// ----- exams -----

type memExamRepo memRepository

func (r *memExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	if r.failExamCreate != nil {
		return r.failExamCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	exam.ID = (*memRepository)(r).id()
	exam.CreatedAt = time.Now()
	stored := *exam
	r.exams[exam.ID] = &stored
	return nil
}

func (r *memExamRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *e
	if u, ok := r.users[e.UploaderID]; ok {
		uc := *u
		copied.Uploader = &uc
	}
	return &copied, nil
}

func (r *memExamRepo) List(ctx context.Context, filters repositories.ExamFilters) ([]models.Exam, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Exam
	for _, e := range r.exams {
		if filters.CourseCode != nil && e.CourseCode != strings.ToUpper(*filters.CourseCode) {
			continue
		}
		if filters.Year != nil && e.Year != *filters.Year {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	if r.failExamUpdate != nil {
		return r.failExamUpdate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[exam.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *exam
	stored.Uploader = nil
	r.exams[exam.ID] = &stored
	return nil
}

func (r *memExamRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.exams, id)
	return nil
}

func (r *memExamRepo) IncrementDownloadCount(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.DownloadCount++
	return nil
}

func (r *memExamRepo) TopDownloaded(ctx context.Context, limit int) ([]models.Exam, error) {
	all, _, _ := r.List(ctx, repositories.ExamFilters{})
	sort.Slice(all, func(i, j int) bool { return all[i].DownloadCount > all[j].DownloadCount })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ----- cheat sheets -----

type memSheetRepo memRepository

func (r *memSheetRepo) Create(ctx context.Context, sheet *models.CheatSheet) error {
	if r.failSheetCreate != nil {
		return r.failSheetCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sheet.ID = (*memRepository)(r).id()
	sheet.CreatedAt = time.Now()
	stored := *sheet
	r.sheets[sheet.ID] = &stored
	return nil
}

func (r *memSheetRepo) GetByID(ctx context.Context, id uint) (*models.CheatSheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sheets[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *s
	if u, ok := r.users[s.UploaderID]; ok {
		uc := *u
		copied.Uploader = &uc
	}
	return &copied, nil
}

func (r *memSheetRepo) List(ctx context.Context, filters repositories.CheatSheetFilters) ([]models.CheatSheet, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CheatSheet
	for _, s := range r.sheets {
		if filters.CourseCode != nil && s.CourseCode != strings.ToUpper(*filters.CourseCode) {
			continue
		}
		if filters.Tag != nil {
			found := false
			for _, tag := range s.Tags {
				if tag == *filters.Tag {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memSheetRepo) Update(ctx context.Context, sheet *models.CheatSheet) error {
	if r.failSheetUpdate != nil {
		return r.failSheetUpdate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sheets[sheet.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *sheet
	stored.Uploader = nil
	r.sheets[sheet.ID] = &stored
	return nil
}

func (r *memSheetRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sheets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.sheets, id)
	return nil
}

func (r *memSheetRepo) IncrementDownloadCount(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sheets[id]
	if !ok {
		return repositories.ErrNotFound
	}
	s.DownloadCount++
	return nil
}

func (r *memSheetRepo) TopDownloaded(ctx context.Context, limit int) ([]models.CheatSheet, error) {
	all, _, _ := r.List(ctx, repositories.CheatSheetFilters{})
	sort.Slice(all, func(i, j int) bool { return all[i].DownloadCount > all[j].DownloadCount })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ----- reviews -----

type memReviewRepo memRepository

func (r *memReviewRepo) Create(ctx context.Context, review *models.CourseReview) error {
	if r.failReviewCreate != nil {
		return r.failReviewCreate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.CourseCode == review.CourseCode &&
			existing.Professor == review.Professor &&
			existing.Year == review.Year &&
			existing.Semester == review.Semester &&
			existing.AuthorID == review.AuthorID {
			return repositories.ErrDuplicate
		}
	}
	review.ID = (*memRepository)(r).id()
	review.CreatedAt = time.Now()
	stored := *review
	r.reviews[review.ID] = &stored
	return nil
}

func (r *memReviewRepo) GetByID(ctx context.Context, id uint) (*models.CourseReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reviews[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *rev
	if u, ok := r.users[rev.AuthorID]; ok {
		uc := *u
		copied.Author = &uc
	}
	return &copied, nil
}

func (r *memReviewRepo) GetByTuple(ctx context.Context, courseCode, professor string, year int, semester models.Semester, authorID uint) (*models.CourseReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.reviews {
		if rev.CourseCode == courseCode && rev.Professor == professor &&
			rev.Year == year && rev.Semester == semester && rev.AuthorID == authorID {
			copied := *rev
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memReviewRepo) List(ctx context.Context, filters repositories.ReviewFilters) ([]models.CourseReview, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseReview
	for _, rev := range r.reviews {
		if filters.CourseCode != nil && rev.CourseCode != strings.ToUpper(*filters.CourseCode) {
			continue
		}
		if filters.AuthorID != nil && rev.AuthorID != *filters.AuthorID {
			continue
		}
		out = append(out, *rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memReviewRepo) Update(ctx context.Context, review *models.CourseReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[review.ID]; !ok {
		return repositories.ErrNotFound
	}
	stored := *review
	r.reviews[review.ID] = &stored
	return nil
}

func (r *memReviewRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}

func (r *memReviewRepo) Statistics(ctx context.Context, courseCode string) (*models.CourseStatistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.CourseStatistics{CourseCode: strings.ToUpper(courseCode)}
	var overall, difficulty, workload, usefulness float64
	for _, rev := range r.reviews {
		if rev.CourseCode != stats.CourseCode {
			continue
		}
		stats.ReviewCount++
		stats.CourseName = rev.CourseName
		overall += rev.Overall
		difficulty += float64(rev.Difficulty)
		workload += float64(rev.Workload)
		usefulness += float64(rev.Usefulness)
	}
	if stats.ReviewCount > 0 {
		n := float64(stats.ReviewCount)
		stats.AvgOverall = overall / n
		stats.AvgDifficulty = difficulty / n
		stats.AvgWorkload = workload / n
		stats.AvgUsefulness = usefulness / n
	}
	return stats, nil
}

// ----- courses -----

type memCourseRepo memRepository

func (r *memCourseRepo) Upsert(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := strings.ToUpper(course.Code)
	if existing, ok := r.courses[code]; ok {
		existing.Name = course.Name
		return nil
	}
	course.ID = (*memRepository)(r).id()
	stored := *course
	stored.Code = code
	r.courses[code] = &stored
	return nil
}

func (r *memCourseRepo) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[strings.ToUpper(code)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memCourseRepo) List(ctx context.Context, search string, limit, offset int) ([]models.Course, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Course
	for _, c := range r.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

// memFileStore is an in-memory storage.FileStore that records deletions
// so tests can assert compensating cleanup.
type memFileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string

	failStore error
	failOpen  error
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (s *memFileStore) ExamDir(year int, semester models.Semester, courseCode string) string {
	return filepath.Join("exams", fmt.Sprintf("%d", year), string(semester), courseCode)
}

func (s *memFileStore) CheatSheetDir() string {
	return "cheatsheets"
}

func (s *memFileStore) Store(ctx context.Context, dir, name string, content io.Reader) (*storage.FileInfo, error) {
	if s.failStore != nil {
		return nil, s.failStore
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	s.mu.Lock()
	s.files[path] = data
	s.mu.Unlock()
	return &storage.FileInfo{Path: path, Size: int64(len(data))}, nil
}

func (s *memFileStore) Open(ctx context.Context, path string) (io.ReadCloser, *storage.FileInfo, error) {
	if s.failOpen != nil {
		return nil, nil, s.failOpen
	}
	s.mu.Lock()
	data, ok := s.files[path]
	s.mu.Unlock()
	if !ok {
		return nil, nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &storage.FileInfo{Path: path, Size: int64(len(data))}, nil
}

func (s *memFileStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		return storage.ErrNotFound
	}
	delete(s.files, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *memFileStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *memFileStore) SweepTemp(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

func (s *memFileStore) fileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
