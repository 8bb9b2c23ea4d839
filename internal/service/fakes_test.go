package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-lms/internal/models"
	"github.com/noah-isme/gema-lms/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type memoryCourseRepo struct {
	courses map[uint]models.Course
	nextID  uint
}

func newMemoryCourseRepo(courses ...models.Course) *memoryCourseRepo {
	repo := &memoryCourseRepo{courses: make(map[uint]models.Course), nextID: 1}
	for _, course := range courses {
		if course.ID >= repo.nextID {
			repo.nextID = course.ID + 1
		}
		repo.courses[course.ID] = course
	}
	return repo
}

func (m *memoryCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	result := make([]models.Course, 0, len(m.courses))
	for _, course := range m.courses {
		result = append(result, course)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryCourseRepo) GetByID(ctx context.Context, id uint) (models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (m *memoryCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = m.nextID
	m.nextID++
	m.courses[course.ID] = *course
	return nil
}

type memoryAssignmentRepo struct {
	assignments map[uint]models.Assignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{
		assignments: make(map[uint]models.Assignment),
		nextID:      1,
	}
}

func (m *memoryAssignmentRepo) List(ctx context.Context, filter repository.AssignmentFilter) ([]models.Assignment, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	results := make([]models.Assignment, 0, len(m.assignments))
	for _, assignment := range m.assignments {
		if filter.CourseID != nil && assignment.CourseID != *filter.CourseID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(assignment.Title), search) {
			continue
		}
		results = append(results, assignment)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DueDate.Before(results[j].DueDate)
	})
	return results, nil
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := m.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = m.nextID
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()
	m.assignments[m.nextID] = *assignment
	m.nextID++
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	assignment.UpdatedAt = time.Now()
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

// memorySubmissionRepo mirrors the conditional attempt increment of the gorm repository.
type memorySubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	files       map[uint]models.SubmissionFile
	nextID      uint
	nextFileID  uint
	// limitReached forces the next RecordAttempt to lose the attempt race.
	limitReached bool
	failReads    bool
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{
		submissions: make(map[uint]models.Submission),
		files:       make(map[uint]models.SubmissionFile),
		nextID:      1,
		nextFileID:  1,
	}
}

func (m *memorySubmissionRepo) withFiles(submission models.Submission) models.Submission {
	submission.Files = nil
	ids := make([]uint, 0)
	for id, file := range m.files {
		if file.SubmissionID == submission.ID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		submission.Files = append(submission.Files, m.files[id])
	}
	return submission
}

func (m *memorySubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.Submission, 0)
	for _, submission := range m.submissions {
		if filter.AssignmentID != nil && submission.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && submission.StudentID != *filter.StudentID {
			continue
		}
		result = append(result, m.withFiles(submission))
	}
	return result, nil
}

func (m *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return m.withFiles(submission), nil
}

func (m *memorySubmissionRepo) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return models.Submission{}, errors.New("submissions table unavailable")
	}
	for _, submission := range m.submissions {
		if submission.AssignmentID == assignmentID && submission.StudentID == studentID {
			return m.withFiles(submission), nil
		}
	}
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (m *memorySubmissionRepo) RecordAttempt(ctx context.Context, attempt repository.SubmissionAttempt) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limitReached {
		m.limitReached = false
		return 0, repository.ErrAttemptLimitReached
	}
	if attempt.MaxAttempts < 1 {
		return 0, repository.ErrAttemptLimitReached
	}

	var id uint
	if attempt.SubmissionID == 0 {
		for _, existing := range m.submissions {
			if existing.AssignmentID == attempt.AssignmentID && existing.StudentID == attempt.StudentID {
				return 0, gorm.ErrDuplicatedKey
			}
		}
		id = m.nextID
		m.nextID++
		m.submissions[id] = models.Submission{
			ID:               id,
			AssignmentID:     attempt.AssignmentID,
			StudentID:        attempt.StudentID,
			Title:            attempt.Title,
			Text:             attempt.Text,
			SubmittedAt:      attempt.SubmittedAt,
			ObtainedAttempts: 1,
		}
	} else {
		existing, ok := m.submissions[attempt.SubmissionID]
		if !ok || existing.ObtainedAttempts >= attempt.MaxAttempts {
			return 0, repository.ErrAttemptLimitReached
		}
		existing.Title = attempt.Title
		existing.Text = attempt.Text
		existing.SubmittedAt = attempt.SubmittedAt
		existing.ObtainedAttempts++
		m.submissions[existing.ID] = existing
		id = existing.ID
	}

	for _, file := range attempt.Files {
		file.ID = m.nextFileID
		file.SubmissionID = id
		m.files[file.ID] = file
		m.nextFileID++
	}
	return id, nil
}

func (m *memorySubmissionRepo) UpdateGrade(ctx context.Context, id uint, update repository.GradeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	submission, ok := m.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if update.Marks != nil {
		marks := *update.Marks
		submission.ObtainedMarks = &marks
	}
	if update.Feedback != nil {
		feedback := *update.Feedback
		submission.Feedback = &feedback
	}
	gradedBy := update.GradedBy
	gradedAt := update.GradedAt
	submission.GradedBy = &gradedBy
	submission.GradedAt = &gradedAt
	m.submissions[id] = submission
	return nil
}

func (m *memorySubmissionRepo) GetFile(ctx context.Context, id uint) (models.SubmissionFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[id]
	if !ok {
		return models.SubmissionFile{}, gorm.ErrRecordNotFound
	}
	return file, nil
}

func (m *memorySubmissionRepo) DeleteFile(ctx context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return false, nil
	}
	delete(m.files, id)
	return true, nil
}

type memoryPenaltyRepo struct {
	flats      map[uint]models.Penalty
	variations map[uint]models.VariationPenalty
	ranges     map[uint]models.PenaltyRange
	nextID     uint
	failReads  bool
}

func newMemoryPenaltyRepo() *memoryPenaltyRepo {
	return &memoryPenaltyRepo{
		flats:      make(map[uint]models.Penalty),
		variations: make(map[uint]models.VariationPenalty),
		ranges:     make(map[uint]models.PenaltyRange),
		nextID:     1,
	}
}

var errPenaltyStoreDown = errors.New("penalty store unavailable")

func (m *memoryPenaltyRepo) id() uint {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryPenaltyRepo) ListFlat(ctx context.Context, assignmentID uint) ([]models.Penalty, error) {
	if m.failReads {
		return nil, errPenaltyStoreDown
	}
	result := make([]models.Penalty, 0)
	for _, flat := range m.flats {
		if flat.AssignmentID == assignmentID {
			result = append(result, flat)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryPenaltyRepo) GetFlat(ctx context.Context, id uint) (models.Penalty, error) {
	flat, ok := m.flats[id]
	if !ok {
		return models.Penalty{}, gorm.ErrRecordNotFound
	}
	return flat, nil
}

func (m *memoryPenaltyRepo) CreateFlat(ctx context.Context, penalty *models.Penalty) error {
	penalty.ID = m.id()
	m.flats[penalty.ID] = *penalty
	return nil
}

func (m *memoryPenaltyRepo) UpdateFlat(ctx context.Context, penalty *models.Penalty) error {
	m.flats[penalty.ID] = *penalty
	return nil
}

func (m *memoryPenaltyRepo) DeleteFlat(ctx context.Context, id uint) error {
	if _, ok := m.flats[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.flats, id)
	return nil
}

func (m *memoryPenaltyRepo) GetVariationByAssignment(ctx context.Context, assignmentID uint) (models.VariationPenalty, error) {
	if m.failReads {
		return models.VariationPenalty{}, errPenaltyStoreDown
	}
	for _, variation := range m.variations {
		if variation.AssignmentID == assignmentID {
			return variation, nil
		}
	}
	return models.VariationPenalty{}, gorm.ErrRecordNotFound
}

func (m *memoryPenaltyRepo) GetVariation(ctx context.Context, id uint) (models.VariationPenalty, error) {
	variation, ok := m.variations[id]
	if !ok {
		return models.VariationPenalty{}, gorm.ErrRecordNotFound
	}
	return variation, nil
}

func (m *memoryPenaltyRepo) CreateVariation(ctx context.Context, variation *models.VariationPenalty) error {
	variation.ID = m.id()
	m.variations[variation.ID] = *variation
	return nil
}

func (m *memoryPenaltyRepo) DeleteVariation(ctx context.Context, id uint) error {
	if _, ok := m.variations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for rangeID, r := range m.ranges {
		if r.VariationPenaltyID == id {
			delete(m.ranges, rangeID)
		}
	}
	delete(m.variations, id)
	return nil
}

func (m *memoryPenaltyRepo) ListRanges(ctx context.Context, variationID uint) ([]models.PenaltyRange, error) {
	result := make([]models.PenaltyRange, 0)
	for _, r := range m.ranges {
		if r.VariationPenaltyID == variationID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DaysLate != result[j].DaysLate {
			return result[i].DaysLate < result[j].DaysLate
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *memoryPenaltyRepo) GetRange(ctx context.Context, id uint) (models.PenaltyRange, error) {
	r, ok := m.ranges[id]
	if !ok {
		return models.PenaltyRange{}, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (m *memoryPenaltyRepo) CreateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error {
	penaltyRange.ID = m.id()
	m.ranges[penaltyRange.ID] = *penaltyRange
	return nil
}

func (m *memoryPenaltyRepo) UpdateRange(ctx context.Context, penaltyRange *models.PenaltyRange) error {
	m.ranges[penaltyRange.ID] = *penaltyRange
	return nil
}

func (m *memoryPenaltyRepo) DeleteRange(ctx context.Context, id uint) error {
	if _, ok := m.ranges[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.ranges, id)
	return nil
}

type stubUploader struct {
	mu      sync.Mutex
	uploads []string
	live    map[string]struct{}
	failOn  string
}

func (s *stubUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && strings.HasSuffix(name, s.failOn) {
		return "", errors.New("storage unavailable")
	}
	s.uploads = append(s.uploads, name)
	url := fmt.Sprintf("https://files.example.com/%s", name)
	if s.live == nil {
		s.live = map[string]struct{}{}
	}
	s.live[url] = struct{}{}
	return url, nil
}

func (s *stubUploader) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, url)
	return nil
}

// stored counts files still held by storage.
func (s *stubUploader) stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *stubUploader) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// multipartFiles builds real *multipart.FileHeader values from name/content pairs.
func multipartFiles(t *testing.T, pairs ...string) []*multipart.FileHeader {
	t.Helper()
	require.True(t, len(pairs)%2 == 0)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i := 0; i < len(pairs); i += 2 {
		part, err := writer.CreateFormFile("files", pairs[i])
		require.NoError(t, err)
		_, err = part.Write([]byte(pairs[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"
