package donation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/usecase/donation"
)

type fixture struct {
	repo     *memoryDonationRepository
	users    *memoryUsers
	notifier *recordingNotifier
	feed     *localFeed
	donor    entity.Party
	ngo      entity.Party
	otherNGO entity.Party
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMemoryDonationRepository(),
		notifier: &recordingNotifier{},
		feed:     newLocalFeed(),
		donor:    entity.Party{ID: uuid.New(), Name: "Анна", Phone: "79001112233"},
		ngo:      entity.Party{ID: uuid.New(), Name: "Фудбанк", Phone: "79004445566"},
		otherNGO: entity.Party{ID: uuid.New(), Name: "Добрые руки"},
	}
	f.users = newMemoryUsers(f.donor, f.ngo, f.otherNGO)
	f.repo.stats = f.users
	return f
}

func (f *fixture) create(t *testing.T, title, quantity string) *entity.Donation {
	t.Helper()
	uc := donation.NewCreateDonationUseCase(f.repo, f.users, f.feed)
	d, err := uc.Execute(context.Background(), donation.CreateDonationInput{
		DonorID: f.donor.ID,
		Form: entity.DonationForm{
			Title:      title,
			FoodType:   "cooked",
			Quantity:   quantity,
			ExpiryTime: time.Now().Add(6 * time.Hour),
			Latitude:   55.75,
			Longitude:  37.61,
			Address:    "Москва, Тверская 1",
		},
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) accept(ctx context.Context, id uuid.UUID, ngo entity.Party) (*entity.Donation, error) {
	uc := donation.NewAcceptDonationUseCase(f.repo, f.users, f.notifier, f.feed)
	return uc.Execute(ctx, donation.AcceptDonationInput{DonationID: id, NGOID: ngo.ID})
}

func (f *fixture) advance(ctx context.Context, id, actor uuid.UUID, to valueobject.DonationStatus) (*entity.Donation, error) {
	uc := donation.NewUpdateDonationStatusUseCase(f.repo, f.notifier, f.feed)
	return uc.Execute(ctx, donation.UpdateStatusInput{DonationID: id, ActorID: actor, Status: to})
}

func TestCreateDonationUseCase_Success(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Surplus Rice", "10 kg")

	assert.Equal(t, valueobject.DonationStatusPending, d.Status)
	assert.Equal(t, f.donor.ID, d.DonorID)
	assert.Equal(t, "Анна", d.DonorName)
	assert.Nil(t, d.AcceptedBy)

	stored, err := f.repo.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Title, stored.Title)
}

func TestCreateDonationUseCase_InvalidFormWritesNothing(t *testing.T) {
	f := newFixture()
	uc := donation.NewCreateDonationUseCase(f.repo, f.users, f.feed)

	_, err := uc.Execute(context.Background(), donation.CreateDonationInput{
		DonorID: f.donor.ID,
		Form: entity.DonationForm{
			FoodType:   "cooked",
			Quantity:   "1 kg",
			ExpiryTime: time.Now().Add(time.Hour),
			Address:    "Москва",
		},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, f.repo.donations)
}

func TestCreateDonationUseCase_UnknownDonor(t *testing.T) {
	f := newFixture()
	uc := donation.NewCreateDonationUseCase(f.repo, f.users, f.feed)

	_, err := uc.Execute(context.Background(), donation.CreateDonationInput{DonorID: uuid.New()})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAcceptDonationUseCase_NotifiesDonor(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Хлеб", "5 loaves")

	accepted, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)

	assert.Equal(t, valueobject.DonationStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedBy)
	assert.Equal(t, f.ngo.ID, *accepted.AcceptedBy)
	assert.Equal(t, "Фудбанк", *accepted.AcceptedByName)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, f.donor.ID, sent[0].UserID)
	assert.Equal(t, models.NotificationSuccess, sent[0].Kind)
	assert.Equal(t, "/donations/"+d.ID.String(), sent[0].Link)
}

func TestAcceptDonationUseCase_AlreadyAccepted(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Хлеб", "5 loaves")

	_, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)

	_, err = f.accept(context.Background(), d.ID, f.otherNGO)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))

	stored, _ := f.repo.FindByID(context.Background(), d.ID)
	assert.Equal(t, f.ngo.ID, *stored.AcceptedBy)
}

func TestAcceptDonationUseCase_ConcurrentAcceptsOneWins(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Овощи", "20 kg")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	ngos := make([]entity.Party, attempts)
	for i := range ngos {
		ngos[i] = entity.Party{ID: uuid.New(), Name: "НКО"}
		f.users.parties[ngos[i].ID] = ngos[i]
	}
	for _, ngo := range ngos {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.accept(context.Background(), d.ID, ngo)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperror.IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestUpdateDonationStatusUseCase_OnlyAcceptingNGO(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Суп", "3 l")
	_, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)

	_, err = f.advance(context.Background(), d.ID, f.otherNGO.ID, valueobject.DonationStatusCompleted)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.advance(context.Background(), d.ID, f.donor.ID, valueobject.DonationStatusCompleted)
	assert.True(t, apperror.IsForbidden(err))
}

func TestUpdateDonationStatusUseCase_RejectsBackwardsTransition(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Суп", "3 l")
	_, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)

	_, err = f.advance(context.Background(), d.ID, f.ngo.ID, valueobject.DonationStatusPending)
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdateDonationStatusUseCase_CompletedIsTerminal(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Суп", "3 l")
	_, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)
	_, err = f.advance(context.Background(), d.ID, f.ngo.ID, valueobject.DonationStatusCompleted)
	require.NoError(t, err)

	_, err = f.advance(context.Background(), d.ID, f.ngo.ID, valueobject.DonationStatusCancelled)
	assert.True(t, apperror.IsConflict(err))
}

func TestUpdateDonationStatusUseCase_CancelKeepsStats(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Суп", "3 l")
	_, err := f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)

	cancelled, err := f.advance(context.Background(), d.ID, f.ngo.ID, valueobject.DonationStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusCancelled, cancelled.Status)

	donations, fed := f.users.statsOf(f.donor.ID)
	assert.Zero(t, donations)
	assert.Zero(t, fed)

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, models.NotificationWarning, sent[1].Kind)
}

func TestUpdateDonationStatusUseCase_CompleteIsAtomicWithStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, "Рис", "4 kg")
	_, err := f.accept(ctx, d.ID, f.ngo)
	require.NoError(t, err)

	f.repo.statsErr = apperror.New(apperror.ErrCodeDatabaseError, "deadlock detected")
	_, err = f.advance(ctx, d.ID, f.ngo.ID, valueobject.DonationStatusCompleted)
	assert.Equal(t, apperror.ErrCodeDatabaseError, apperror.CodeOf(err))

	stored, err := f.repo.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusAccepted, stored.Status)

	f.repo.statsErr = nil
	completed, err := f.advance(ctx, d.ID, f.ngo.ID, valueobject.DonationStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusCompleted, completed.Status)

	donations, fed := f.users.statsOf(f.donor.ID)
	assert.Equal(t, 1, donations)
	assert.Equal(t, 8, fed)
}

func TestSurplusRiceLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.create(t, "Surplus Rice", "10 kg")

	available, err := donation.NewListDonationsUseCase(f.repo).Execute(ctx, donation.ListDonationsInput{
		Scope:  donation.ScopeAvailable,
		UserID: f.ngo.ID,
	})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, d.ID, available[0].ID)

	_, err = f.accept(ctx, d.ID, f.ngo)
	require.NoError(t, err)

	available, err = donation.NewListDonationsUseCase(f.repo).Execute(ctx, donation.ListDonationsInput{
		Scope:  donation.ScopeAvailable,
		UserID: f.ngo.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, available)

	pickups, err := donation.NewListDonationsUseCase(f.repo).Execute(ctx, donation.ListDonationsInput{
		Scope:  donation.ScopePickups,
		UserID: f.ngo.ID,
	})
	require.NoError(t, err)
	require.Len(t, pickups, 1)

	completed, err := f.advance(ctx, d.ID, f.ngo.ID, valueobject.DonationStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusCompleted, completed.Status)

	donations, fed := f.users.statsOf(f.donor.ID)
	assert.Equal(t, 1, donations)
	assert.Equal(t, 20, fed)

	summary, err := donation.NewImpactSummaryUseCase(f.repo).Execute(ctx, donation.ScopeMine, f.donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	assert.InDelta(t, 10.0, summary.TotalWeight, 0.001)
	assert.Equal(t, 20, summary.PeopleFed)
}

func TestUpdateDonationUseCase(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Яблоки", "4 kg")
	uc := donation.NewUpdateDonationUseCase(f.repo, f.feed)

	title := "Яблоки и груши"
	updated, err := uc.Execute(context.Background(), donation.UpdateDonationInput{
		DonationID: d.ID,
		DonorID:    f.donor.ID,
		Patch:      entity.DonationPatch{Title: &title},
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = uc.Execute(context.Background(), donation.UpdateDonationInput{
		DonationID: d.ID,
		DonorID:    f.ngo.ID,
		Patch:      entity.DonationPatch{Title: &title},
	})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.accept(context.Background(), d.ID, f.ngo)
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), donation.UpdateDonationInput{
		DonationID: d.ID,
		DonorID:    f.donor.ID,
		Patch:      entity.DonationPatch{Title: &title},
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestDeleteDonationUseCase(t *testing.T) {
	f := newFixture()
	uc := donation.NewDeleteDonationUseCase(f.repo, f.feed)

	pending := f.create(t, "Молоко", "2 l")
	assert.True(t, apperror.IsForbidden(uc.Execute(context.Background(), pending.ID, f.ngo.ID)))
	require.NoError(t, uc.Execute(context.Background(), pending.ID, f.donor.ID))

	_, err := f.repo.FindByID(context.Background(), pending.ID)
	assert.True(t, apperror.IsNotFound(err))

	accepted := f.create(t, "Сыр", "1 kg")
	_, err = f.accept(context.Background(), accepted.ID, f.ngo)
	require.NoError(t, err)
	assert.True(t, apperror.IsConflict(uc.Execute(context.Background(), accepted.ID, f.donor.ID)))
}

func TestDeleteDonationUseCase_AcceptedMeanwhileIsKept(t *testing.T) {
	f := newFixture()
	d := f.create(t, "Хлеб", "3 kg")

	repo := &interleavingRepository{memoryDonationRepository: f.repo, between: func() {
		_, err := f.accept(context.Background(), d.ID, f.ngo)
		require.NoError(t, err)
	}}

	err := donation.NewDeleteDonationUseCase(repo, f.feed).Execute(context.Background(), d.ID, f.donor.ID)
	assert.True(t, apperror.IsConflict(err))

	stored, err := f.repo.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusAccepted, stored.Status)
	assert.Equal(t, f.ngo.ID, *stored.AcceptedBy)
}

func TestImpactSummaryUseCase_PeopleFedFromTotalWeight(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, qty := range []string{"0.25 kg", "0.25 kg"} {
		d := f.create(t, "Яблоки", qty)
		_, err := f.accept(ctx, d.ID, f.ngo)
		require.NoError(t, err)
		_, err = f.advance(ctx, d.ID, f.ngo.ID, valueobject.DonationStatusCompleted)
		require.NoError(t, err)
	}

	summary, err := donation.NewImpactSummaryUseCase(f.repo).Execute(ctx, donation.ScopeMine, f.donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Completed)
	assert.InDelta(t, 0.5, summary.TotalWeight, 1e-9)
	assert.Equal(t, 1, summary.PeopleFed)
}

func TestListDonationsUseCase_MineNewestFirst(t *testing.T) {
	f := newFixture()
	first := f.create(t, "Первое", "1 kg")
	time.Sleep(2 * time.Millisecond)
	second := f.create(t, "Второе", "1 kg")

	items, err := donation.NewListDonationsUseCase(f.repo).Execute(context.Background(), donation.ListDonationsInput{
		Scope:  donation.ScopeMine,
		UserID: f.donor.ID,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestFilterFor(t *testing.T) {
	_, err := donation.FilterFor(donation.ListDonationsInput{Scope: "everything"})
	assert.Error(t, err)

	_, err = donation.FilterFor(donation.ListDonationsInput{Scope: donation.ScopeMine, Status: "lost"})
	assert.True(t, apperror.IsValidation(err))

	filter, err := donation.FilterFor(donation.ListDonationsInput{Scope: donation.ScopeAvailable, Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, valueobject.DonationStatusPending, filter.Status)
	assert.Equal(t, 200, filter.Limit)
}

func TestWatchDonationsUseCase_DeliversSnapshots(t *testing.T) {
	f := newFixture()
	uc := donation.NewWatchDonationsUseCase(f.repo, f.feed)

	snapshots := make(chan []*entity.Donation, 16)
	sub, err := uc.Execute(context.Background(), donation.ListDonationsInput{
		Scope:  donation.ScopeAvailable,
		UserID: f.ngo.ID,
	}, func(items []*entity.Donation) {
		snapshots <- items
	})
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, <-snapshots)

	d := f.create(t, "Surplus Rice", "10 kg")

	require.Eventually(t, func() bool {
		for {
			select {
			case items := <-snapshots:
				if len(items) == 1 && items[0].ID == d.ID {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 10*time.Millisecond)
}

func TestWatchDonationsUseCase_ChangeDuringFirstReadIsDelivered(t *testing.T) {
	f := newFixture()
	var created *entity.Donation
	repo := &interleavingRepository{memoryDonationRepository: f.repo, between: func() {
		created = f.create(t, "Суп", "5 l")
	}}

	var mu sync.Mutex
	var latest []*entity.Donation
	sub, err := donation.NewWatchDonationsUseCase(repo, f.feed).Execute(context.Background(), donation.ListDonationsInput{
		Scope:  donation.ScopeAvailable,
		UserID: f.ngo.ID,
	}, func(items []*entity.Donation) {
		mu.Lock()
		latest = items
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0].ID == created.ID
	}, time.Second, 10*time.Millisecond)
}

func TestWatchDonationsUseCase_CloseStopsDelivery(t *testing.T) {
	f := newFixture()
	uc := donation.NewWatchDonationsUseCase(f.repo, f.feed)

	var mu sync.Mutex
	calls := 0
	sub, err := uc.Execute(context.Background(), donation.ListDonationsInput{
		Scope:  donation.ScopeMine,
		UserID: f.donor.ID,
	}, func([]*entity.Donation) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	mu.Lock()
	before := calls
	mu.Unlock()

	f.create(t, "После закрытия", "1 kg")
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, calls)
}
