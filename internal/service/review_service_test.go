package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/repository"
)

// memoryReviewRepo применяет оценку к статистике под мьютексом, как транзакция в БД.
type memoryReviewRepo struct {
	mu      sync.Mutex
	stats   map[uuid.UUID]models.UserStats
	reviews []models.Review
}

func newMemoryReviewRepo() *memoryReviewRepo {
	return &memoryReviewRepo{stats: make(map[uuid.UUID]models.UserStats)}
}

func (m *memoryReviewRepo) CreateWithStats(ctx context.Context, review *models.Review) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ReviewerID == review.ReviewerID && r.DonationID == review.DonationID {
			return nil, repository.ErrReviewExists
		}
	}
	stats, ok := m.stats[review.TargetUserID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	review.ID = uuid.New()
	review.CreatedAt = time.Now()
	m.reviews = append(m.reviews, *review)

	stats = stats.ApplyReview(review.Rating)
	m.stats[review.TargetUserID] = stats
	return &stats, nil
}

func (m *memoryReviewRepo) ListByTarget(ctx context.Context, targetID uuid.UUID, limit, offset int) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Review
	for i := len(m.reviews) - 1; i >= 0; i-- {
		if m.reviews[i].TargetUserID == targetID {
			out = append(out, m.reviews[i])
		}
	}
	return out, nil
}

type stubDonations map[uuid.UUID]*entity.Donation

func (s stubDonations) FindByID(ctx context.Context, id uuid.UUID) (*entity.Donation, error) {
	if d, ok := s[id]; ok {
		return d, nil
	}
	return nil, apperror.ErrDonationNotFound
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, title, message, kind, link string) error {
	args := m.Called(ctx, userID, title, message, kind, link)
	return args.Error(0)
}

type reviewFixture struct {
	repo     *memoryReviewRepo
	notifier *mockNotifier
	svc      *ReviewService
	donor    uuid.UUID
	ngo      uuid.UUID
	donation *entity.Donation
}

func newReviewFixture(status valueobject.DonationStatus) *reviewFixture {
	donor, ngo := uuid.New(), uuid.New()
	donation := &entity.Donation{
		ID:         uuid.New(),
		DonorID:    donor,
		Title:      "Surplus Rice",
		Status:     status,
		AcceptedBy: &ngo,
	}

	repo := newMemoryReviewRepo()
	repo.stats[donor] = models.UserStats{RatingSum: 10, ReviewCount: 2, KarmaPoints: 20}
	repo.stats[ngo] = models.UserStats{}

	notifier := &mockNotifier{}
	users := stubUsers{
		donor: {ID: donor, DisplayName: "Анна"},
		ngo:   {ID: ngo, DisplayName: "Фудбанк"},
	}

	return &reviewFixture{
		repo:     repo,
		notifier: notifier,
		svc:      NewReviewService(repo, stubDonations{donation.ID: donation}, users, notifier),
		donor:    donor,
		ngo:      ngo,
		donation: donation,
	}
}

func TestReviewService_SubmitReview_AppliesStats(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)
	f.notifier.On("Notify", mock.Anything, f.donor, "Новый отзыв", mock.Anything, models.NotificationInfo, mock.Anything).Return(nil)

	result, err := f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID:   f.ngo,
		TargetUserID: f.donor,
		DonationID:   f.donation.ID,
		Rating:       5,
		Comment:      "Всё свежее, спасибо!",
	})
	require.NoError(t, err)

	assert.Equal(t, 15, result.Stats.RatingSum)
	assert.Equal(t, 3, result.Stats.ReviewCount)
	assert.Equal(t, 40, result.Stats.KarmaPoints)
	assert.Equal(t, "Фудбанк", result.Review.ReviewerName)
	f.notifier.AssertExpectations(t)
}

func TestReviewService_SubmitReview_Validation(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
			ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: rating,
		})
		assert.True(t, apperror.IsValidation(err), "rating %d", rating)
	}

	_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID: f.donor, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 4,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID: uuid.New(), TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 4,
	})
	assert.True(t, apperror.IsForbidden(err))

	assert.Empty(t, f.repo.reviews)
	f.notifier.AssertNumberOfCalls(t, "Notify", 0)
}

func TestReviewService_SubmitReview_RequiresCompletedDonation(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusAccepted)

	_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 4,
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestReviewService_SubmitReview_Duplicate(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	in := ReviewInput{ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 4}
	_, err := f.svc.SubmitReview(context.Background(), in)
	require.NoError(t, err)

	_, err = f.svc.SubmitReview(context.Background(), in)
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, 3, f.repo.stats[f.donor].ReviewCount)
}

func TestReviewService_ConcurrentReviewsAreNotLost(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	second := &entity.Donation{ID: uuid.New(), DonorID: f.donor, Title: "Хлеб", Status: valueobject.DonationStatusCompleted, AcceptedBy: &f.ngo}
	f.svc.donations = stubDonations{f.donation.ID: f.donation, second.ID: second}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, d := range []*entity.Donation{f.donation, second} {
		wg.Add(1)
		go func(id uuid.UUID, rating int) {
			defer wg.Done()
			_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
				ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: id, Rating: rating,
			})
			errs <- err
		}(d.ID, 3)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats := f.repo.stats[f.donor]
	assert.Equal(t, 4, stats.ReviewCount)
	assert.Equal(t, 16, stats.RatingSum)
	assert.Equal(t, 20+2*models.KarmaBoost(3), stats.KarmaPoints)
}

func TestReviewService_NotifierFailureDoesNotFail(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(apperror.New(apperror.ErrCodeDatabaseError, "down"))

	_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 2,
	})
	assert.NoError(t, err)
}

func TestReviewService_ListUserReviews(t *testing.T) {
	f := newReviewFixture(valueobject.DonationStatusCompleted)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.SubmitReview(context.Background(), ReviewInput{
		ReviewerID: f.ngo, TargetUserID: f.donor, DonationID: f.donation.ID, Rating: 5,
	})
	require.NoError(t, err)

	reviews, err := f.svc.ListUserReviews(context.Background(), f.donor, 0, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
}
