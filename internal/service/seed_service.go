package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/domain/repository"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	legacy "github.com/ignatzorin/feedreach-backend/internal/repository"
)

// DemoPassword пароль всех демо-аккаунтов.
const DemoPassword = "Password123"

// SeedUserRepository создание демо-пользователей.
type SeedUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	AddDonationStats(ctx context.Context, userID uuid.UUID, donations, peopleFed int) error
}

// SeedService генерирует демо-данные: доноров, НКО и пожертвования в разных статусах.
type SeedService struct {
	users     SeedUserRepository
	donations repository.DonationRepository
	rnd       *rand.Rand
}

func NewSeedService(users SeedUserRepository, donations repository.DonationRepository, seed uint64) *SeedService {
	return &SeedService{
		users:     users,
		donations: donations,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

// SeedResult итог генерации.
type SeedResult struct {
	Donors    int
	NGOs      int
	Donations int
}

var (
	seedDonorNames = []string{
		"Александр Иванов", "Мария Петрова", "Дмитрий Смирнов", "Анна Козлова",
		"Сергей Соколов", "Елена Попова", "Илья Лебедев", "Ольга Новикова",
	}
	seedNGONames = []string{
		"Фудбанк Рус", "Еда без границ", "Добрый обед", "Городская кухня",
	}
	seedFood = []struct {
		title, foodType, quantity string
	}{
		{"Рис после банкета", "cooked", "10 kg"},
		{"Хлеб из пекарни", "bakery", "25 loaves"},
		{"Овощи с рынка", "produce", "15 kg"},
		{"Молочные продукты", "dairy", "12 l"},
		{"Суп и второе", "cooked", "30 portions"},
		{"Фрукты", "produce", "8 kg"},
	}
	seedPlaces = []struct {
		address  string
		lat, lng float64
	}{
		{"Москва, Тверская ул., 7", 55.7579, 37.6117},
		{"Москва, ул. Арбат, 24", 55.7505, 37.5937},
		{"Санкт-Петербург, Невский пр., 28", 59.9357, 30.3259},
		{"Казань, ул. Баумана, 51", 55.7887, 49.1177},
	}
)

// Seed создаёт donors доноров, ngos НКО и donations пожертвований. Уже существующие демо-аккаунты переиспользуются.
func (s *SeedService) Seed(ctx context.Context, donors, ngos, donations int) (*SeedResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed service: hash password %w", err)
	}

	donorUsers, err := s.ensureUsers(ctx, models.RoleDonor, donors, string(hash))
	if err != nil {
		return nil, err
	}
	ngoUsers, err := s.ensureUsers(ctx, models.RoleNGO, ngos, string(hash))
	if err != nil {
		return nil, err
	}
	if len(donorUsers) == 0 {
		return &SeedResult{NGOs: len(ngoUsers)}, nil
	}

	created := 0
	for i := 0; i < donations; i++ {
		donor := donorUsers[s.rnd.IntN(len(donorUsers))]
		d, err := s.createDonation(ctx, donor)
		if err != nil {
			return nil, err
		}
		created++

		if len(ngoUsers) == 0 {
			continue
		}
		// примерно половина уходит дальше по жизненному циклу
		switch s.rnd.IntN(4) {
		case 0:
			err = s.advance(ctx, d, ngoUsers[s.rnd.IntN(len(ngoUsers))], valueobject.DonationStatusAccepted)
		case 1:
			err = s.advance(ctx, d, ngoUsers[s.rnd.IntN(len(ngoUsers))], valueobject.DonationStatusCompleted)
		}
		if err != nil {
			return nil, err
		}
	}

	logger.Component("seed").WithFields(map[string]interface{}{
		"donors":    len(donorUsers),
		"ngos":      len(ngoUsers),
		"donations": created,
	}).Info("демо-данные созданы")

	return &SeedResult{Donors: len(donorUsers), NGOs: len(ngoUsers), Donations: created}, nil
}

func (s *SeedService) ensureUsers(ctx context.Context, role string, count int, passwordHash string) ([]*models.User, error) {
	names := seedDonorNames
	if role == models.RoleNGO {
		names = seedNGONames
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		email := fmt.Sprintf("%s%d@demo.feedreach.org", role, i+1)
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			users = append(users, existing)
			continue
		}
		if !errors.Is(err, legacy.ErrUserNotFound) {
			return nil, fmt.Errorf("seed service: lookup %s %w", email, err)
		}

		name := names[i%len(names)]
		phone := fmt.Sprintf("7900%07d", s.rnd.IntN(10_000_000))
		user := &models.User{
			Email:              email,
			PasswordHash:       passwordHash,
			DisplayName:        name,
			Role:               role,
			Phone:              &phone,
			VerificationStatus: models.VerificationNone,
			AccountStatus:      models.AccountActive,
		}
		if role == models.RoleNGO {
			org := name
			user.OrganizationName = &org
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("seed service: create %s %w", email, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *SeedService) createDonation(ctx context.Context, donor *models.User) (*entity.Donation, error) {
	food := seedFood[s.rnd.IntN(len(seedFood))]
	place := seedPlaces[s.rnd.IntN(len(seedPlaces))]

	d, err := entity.NewDonation(partyOf(donor), entity.DonationForm{
		Title:       food.title,
		Description: "Демо-пожертвование",
		FoodType:    food.foodType,
		Quantity:    food.quantity,
		ExpiryTime:  time.Now().Add(time.Duration(6+s.rnd.IntN(42)) * time.Hour),
		Latitude:    place.lat,
		Longitude:   place.lng,
		Address:     place.address,
	})
	if err != nil {
		return nil, fmt.Errorf("seed service: build donation %w", err)
	}
	if err := s.donations.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("seed service: create donation %w", err)
	}
	return d, nil
}

func (s *SeedService) advance(ctx context.Context, d *entity.Donation, ngo *models.User, to valueobject.DonationStatus) error {
	if err := d.Accept(partyOf(ngo)); err != nil {
		return err
	}
	if err := s.donations.Update(ctx, d, valueobject.DonationStatusPending); err != nil {
		return fmt.Errorf("seed service: accept donation %w", err)
	}
	if to != valueobject.DonationStatusCompleted {
		return nil
	}

	if err := d.Advance(valueobject.DonationStatusCompleted); err != nil {
		return err
	}
	if err := s.donations.Update(ctx, d, valueobject.DonationStatusAccepted); err != nil {
		return fmt.Errorf("seed service: complete donation %w", err)
	}
	return s.users.AddDonationStats(ctx, d.DonorID, 1, d.PeopleFed())
}

func partyOf(u *models.User) entity.Party {
	p := entity.Party{ID: u.ID, Name: u.DisplayName}
	if u.OrganizationName != nil {
		p.Name = *u.OrganizationName
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	return p
}
