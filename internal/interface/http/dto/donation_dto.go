package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/domain/entity"
	"github.com/ignatzorin/feedreach-backend/internal/geo"
)

type CreateDonationRequest struct {
	Title              string    `json:"title" binding:"required"`
	Description        string    `json:"description"`
	FoodType           string    `json:"food_type" binding:"required"`
	Quantity           string    `json:"quantity" binding:"required"`
	ExpiryTime         time.Time `json:"expiry_time" binding:"required"`
	ImageURLs          []string  `json:"image_urls"`
	ContactPhone       string    `json:"contact_phone"`
	ContactCountryCode string    `json:"contact_country_code"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	Address            string    `json:"address"`
}

// HasCoordinates точка на карте передана целиком.
func (r CreateDonationRequest) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type UpdateDonationRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	FoodType           *string    `json:"food_type"`
	Quantity           *string    `json:"quantity"`
	ExpiryTime         *time.Time `json:"expiry_time"`
	ImageURLs          []string   `json:"image_urls"`
	ContactPhone       *string    `json:"contact_phone"`
	ContactCountryCode *string    `json:"contact_country_code"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	Address            *string    `json:"address"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type LocationDTO struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Address        string  `json:"address"`
	NavigationLink string  `json:"navigation_link"`
}

type DonationResponse struct {
	ID                 uuid.UUID   `json:"id"`
	DonorID            uuid.UUID   `json:"donor_id"`
	DonorName          string      `json:"donor_name"`
	DonorPhone         string      `json:"donor_phone,omitempty"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	FoodType           string      `json:"food_type"`
	Quantity           string      `json:"quantity"`
	ExpiryTime         time.Time   `json:"expiry_time"`
	ImageURLs          []string    `json:"image_urls"`
	ContactPhone       string      `json:"contact_phone,omitempty"`
	ContactCountryCode string      `json:"contact_country_code,omitempty"`
	Location           LocationDTO `json:"location"`
	Status             string      `json:"status"`
	AcceptedBy         *uuid.UUID  `json:"accepted_by"`
	AcceptedByName     *string     `json:"accepted_by_name"`
	AcceptedByPhone    *string     `json:"accepted_by_phone,omitempty"`
	PeopleFed          int         `json:"people_fed"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Form без адреса: его подставляет хэндлер через геокодер.
func (r CreateDonationRequest) Form() entity.DonationForm {
	var lat, lng float64
	if r.HasCoordinates() {
		lat, lng = *r.Latitude, *r.Longitude
	}
	return entity.DonationForm{
		Title:              r.Title,
		Description:        r.Description,
		FoodType:           r.FoodType,
		Quantity:           r.Quantity,
		ExpiryTime:         r.ExpiryTime,
		ImageURLs:          r.ImageURLs,
		ContactPhone:       r.ContactPhone,
		ContactCountryCode: r.ContactCountryCode,
		Latitude:           lat,
		Longitude:          lng,
		Address:            r.Address,
	}
}

func (r UpdateDonationRequest) Patch() entity.DonationPatch {
	return entity.DonationPatch{
		Title:              r.Title,
		Description:        r.Description,
		FoodType:           r.FoodType,
		Quantity:           r.Quantity,
		ExpiryTime:         r.ExpiryTime,
		ImageURLs:          r.ImageURLs,
		ContactPhone:       r.ContactPhone,
		ContactCountryCode: r.ContactCountryCode,
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		Address:            r.Address,
	}
}

func ToDonationResponse(d *entity.Donation) DonationResponse {
	images := d.ImageURLs
	if images == nil {
		images = []string{}
	}
	return DonationResponse{
		ID:                 d.ID,
		DonorID:            d.DonorID,
		DonorName:          d.DonorName,
		DonorPhone:         d.DonorPhone,
		Title:              d.Title,
		Description:        d.Description,
		FoodType:           d.FoodType,
		Quantity:           d.Quantity,
		ExpiryTime:         d.ExpiryTime,
		ImageURLs:          images,
		ContactPhone:       d.ContactPhone,
		ContactCountryCode: d.ContactCountryCode,
		Location: LocationDTO{
			Latitude:       d.Location.Latitude,
			Longitude:      d.Location.Longitude,
			Address:        d.Location.Address,
			NavigationLink: geo.NavigationLink(d.Location.Latitude, d.Location.Longitude),
		},
		Status:          d.Status.String(),
		AcceptedBy:      d.AcceptedBy,
		AcceptedByName:  d.AcceptedByName,
		AcceptedByPhone: d.AcceptedByPhone,
		PeopleFed:       d.PeopleFed(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func ToDonationResponses(items []*entity.Donation) []DonationResponse {
	result := make([]DonationResponse, 0, len(items))
	for _, d := range items {
		result = append(result, ToDonationResponse(d))
	}
	return result
}
