package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

// MaxDonationImages предельное число фотографий у пожертвования.
const MaxDonationImages = 7

// Party участник сделки: донор или принявшая пожертвование НКО.
type Party struct {
	ID    uuid.UUID
	Name  string
	Phone string
}

type Donation struct {
	ID                 uuid.UUID
	DonorID            uuid.UUID
	DonorName          string
	DonorPhone         string
	Title              string
	Description        string
	FoodType           string
	Quantity           string
	ExpiryTime         time.Time
	ImageURLs          []string
	ContactPhone       string
	ContactCountryCode string
	Location           valueobject.Location
	Status             valueobject.DonationStatus
	AcceptedBy         *uuid.UUID
	AcceptedByName     *string
	AcceptedByPhone    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DonationForm данные формы создания пожертвования.
type DonationForm struct {
	Title              string    `label:"title" validate:"required,max=120"`
	Description        string    `label:"description" validate:"max=2000"`
	FoodType           string    `label:"food_type" validate:"required,max=60"`
	Quantity           string    `label:"quantity" validate:"required,max=60"`
	ExpiryTime         time.Time `label:"expiry_time" validate:"required"`
	ImageURLs          []string  `label:"image_urls" validate:"max=7,dive,required,url"`
	ContactPhone       string    `label:"contact_phone" validate:"omitempty,numeric,max=15"`
	ContactCountryCode string    `label:"contact_country_code" validate:"max=6"`
	Latitude           float64   `label:"latitude" validate:"gte=-90,lte=90"`
	Longitude          float64   `label:"longitude" validate:"gte=-180,lte=180"`
	Address            string    `label:"address" validate:"required,max=300"`
}

func (f *DonationForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.FoodType = strings.TrimSpace(f.FoodType)
	f.Quantity = strings.TrimSpace(f.Quantity)
	f.ContactPhone = strings.TrimSpace(f.ContactPhone)
	f.ContactCountryCode = strings.TrimSpace(f.ContactCountryCode)
	f.Address = strings.TrimSpace(f.Address)
	if f.ImageURLs == nil {
		f.ImageURLs = []string{}
	}
}

// NewDonation проверяет форму и создаёт пожертвование в статусе pending.
func NewDonation(donor Party, form DonationForm) (*Donation, error) {
	if donor.ID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "донор обязателен")
	}

	form.normalize()
	if err := validateStruct(form); err != nil {
		return nil, err
	}

	now := time.Now()
	if form.ExpiryTime.Before(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок годности не может быть в прошлом")
	}

	location, err := valueobject.NewLocation(form.Latitude, form.Longitude, form.Address)
	if err != nil {
		return nil, err
	}

	return &Donation{
		ID:                 uuid.New(),
		DonorID:            donor.ID,
		DonorName:          donor.Name,
		DonorPhone:         donor.Phone,
		Title:              form.Title,
		Description:        form.Description,
		FoodType:           form.FoodType,
		Quantity:           form.Quantity,
		ExpiryTime:         form.ExpiryTime,
		ImageURLs:          form.ImageURLs,
		ContactPhone:       form.ContactPhone,
		ContactCountryCode: form.ContactCountryCode,
		Location:           location,
		Status:             valueobject.DonationStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Accept переводит pending -> accepted и запоминает принявшую НКО.
func (d *Donation) Accept(ngo Party) error {
	if !d.Status.CanTransitionTo(valueobject.DonationStatusAccepted) {
		return apperror.ErrDonationNotPending
	}
	d.Status = valueobject.DonationStatusAccepted
	d.AcceptedBy = &ngo.ID
	d.AcceptedByName = &ngo.Name
	if ngo.Phone != "" {
		d.AcceptedByPhone = &ngo.Phone
	}
	d.UpdatedAt = time.Now()
	return nil
}

// Advance переводит принятое пожертвование в completed или cancelled.
func (d *Donation) Advance(to valueobject.DonationStatus) error {
	if to != valueobject.DonationStatusCompleted && to != valueobject.DonationStatusCancelled {
		return apperror.New(apperror.ErrCodeValidation, "статус можно изменить только на completed или cancelled")
	}
	if !d.Status.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeConflict, "невозможно изменить статус пожертвования в текущем состоянии")
	}
	d.Status = to
	d.UpdatedAt = time.Now()
	return nil
}

// DonationPatch частичное обновление: nil поля не меняются.
type DonationPatch struct {
	Title              *string
	Description        *string
	FoodType           *string
	Quantity           *string
	ExpiryTime         *time.Time
	ImageURLs          []string
	ContactPhone       *string
	ContactCountryCode *string
	Latitude           *float64
	Longitude          *float64
	Address            *string
}

// Update применяет патч. Редактировать можно только pending пожертвование.
func (d *Donation) Update(patch DonationPatch) error {
	if d.Status != valueobject.DonationStatusPending {
		return apperror.New(apperror.ErrCodeConflict, "редактировать можно только ожидающее пожертвование")
	}

	form := d.form()
	if patch.Title != nil {
		form.Title = *patch.Title
	}
	if patch.Description != nil {
		form.Description = *patch.Description
	}
	if patch.FoodType != nil {
		form.FoodType = *patch.FoodType
	}
	if patch.Quantity != nil {
		form.Quantity = *patch.Quantity
	}
	if patch.ExpiryTime != nil {
		if patch.ExpiryTime.Before(time.Now()) {
			return apperror.New(apperror.ErrCodeValidation, "срок годности не может быть в прошлом")
		}
		form.ExpiryTime = *patch.ExpiryTime
	}
	if patch.ImageURLs != nil {
		form.ImageURLs = patch.ImageURLs
	}
	if patch.ContactPhone != nil {
		form.ContactPhone = *patch.ContactPhone
	}
	if patch.ContactCountryCode != nil {
		form.ContactCountryCode = *patch.ContactCountryCode
	}
	if patch.Latitude != nil {
		form.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		form.Longitude = *patch.Longitude
	}
	if patch.Address != nil {
		form.Address = *patch.Address
	}

	form.normalize()
	if err := validateStruct(form); err != nil {
		return err
	}
	location, err := valueobject.NewLocation(form.Latitude, form.Longitude, form.Address)
	if err != nil {
		return err
	}

	d.Title = form.Title
	d.Description = form.Description
	d.FoodType = form.FoodType
	d.Quantity = form.Quantity
	d.ExpiryTime = form.ExpiryTime
	d.ImageURLs = form.ImageURLs
	d.ContactPhone = form.ContactPhone
	d.ContactCountryCode = form.ContactCountryCode
	d.Location = location
	d.UpdatedAt = time.Now()
	return nil
}

func (d *Donation) form() DonationForm {
	return DonationForm{
		Title:              d.Title,
		Description:        d.Description,
		FoodType:           d.FoodType,
		Quantity:           d.Quantity,
		ExpiryTime:         d.ExpiryTime,
		ImageURLs:          append([]string(nil), d.ImageURLs...),
		ContactPhone:       d.ContactPhone,
		ContactCountryCode: d.ContactCountryCode,
		Latitude:           d.Location.Latitude,
		Longitude:          d.Location.Longitude,
		Address:            d.Location.Address,
	}
}

// CanDelete удалять можно только pending пожертвование.
func (d *Donation) CanDelete() bool {
	return d.Status == valueobject.DonationStatusPending
}

func (d *Donation) IsOwnedBy(userID uuid.UUID) bool {
	return d.DonorID == userID
}

func (d *Donation) IsAcceptedBy(userID uuid.UUID) bool {
	return d.AcceptedBy != nil && *d.AcceptedBy == userID
}

// Weight числовая величина из поля quantity.
func (d *Donation) Weight() float64 {
	return valueobject.QuantityMagnitude(d.Quantity)
}

// PeopleFed оценка числа накормленных этим пожертвованием.
func (d *Donation) PeopleFed() int {
	return valueobject.EstimatePeopleFed(d.Weight())
}
