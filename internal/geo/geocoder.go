// Package geo обратное геокодирование точек самовывоза и ссылки для навигации.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/ignatzorin/feedreach-backend/internal/config"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

const maxResponseBytes = 1 << 20

var ErrNoAddress = errors.New("geo: адрес не найден")

// Geocoder превращает координаты в адрес.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// New выбирает реализацию: Google при GEOCODER=google и заданном ключе, иначе Nominatim.
func New(cfg config.GeocoderConfig) Geocoder {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 10 * time.Second
	}
	if cfg.Provider == "google" && cfg.GoogleAPIKey != "" {
		g, err := NewGoogleGeocoder(cfg.GoogleAPIKey, maps.WithHTTPClient(client))
		if err == nil {
			return g
		}
		logger.Component("geo").WithField("error", err.Error()).Warn("клиент Google Maps не создан, используем Nominatim")
	}
	return NewNominatimGeocoder(cfg.NominatimBaseURL, cfg.UserAgent, client)
}

// GoogleGeocoder обратное геокодирование через Google Maps Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("geo: google client %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return "", ErrNoAddress
		}
		return "", fmt.Errorf("geo: google %w", err)
	}
	if len(results) == 0 || results[0].FormattedAddress == "" {
		return "", ErrNoAddress
	}
	return results[0].FormattedAddress, nil
}

type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimGeocoder(baseURL, userAgent string, client *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, client: client}
}

func (n *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lng))

	var body struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	// Nominatim требует осмысленный User-Agent
	headers := map[string]string{"User-Agent": n.userAgent}
	if err := getJSON(ctx, n.client, n.baseURL+"/reverse?"+q.Encode(), headers, &body); err != nil {
		return "", err
	}
	if body.Error != "" || body.DisplayName == "" {
		return "", ErrNoAddress
	}
	return body.DisplayName, nil
}

// Resolver адрес для координат с деградацией до строки "lat, lng".
type Resolver struct {
	geocoder Geocoder
}

func NewResolver(geocoder Geocoder) *Resolver {
	return &Resolver{geocoder: geocoder}
}

// Address никогда не возвращает ошибку сервиса: при сбое отдаёт координаты.
// Ошибка только для координат вне диапазона.
func (r *Resolver) Address(ctx context.Context, lat, lng float64) (string, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", apperror.New(apperror.ErrCodeValidation, "координаты вне допустимого диапазона")
	}
	fallback := valueobject.CoordinatesString(lat, lng)
	if r.geocoder == nil {
		return fallback, nil
	}

	address, err := r.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		if !errors.Is(err, ErrNoAddress) {
			logger.Component("geo").WithFields(map[string]interface{}{
				"lat":   lat,
				"lng":   lng,
				"error": err.Error(),
			}).Warn("геокодер недоступен, используем координаты")
		}
		return fallback, nil
	}
	return address, nil
}

// NavigationLink ссылка на маршрут до точки в Google Maps.
func NavigationLink(lat, lng float64) string {
	return "https://www.google.com/maps/dir/?api=1&destination=" + formatCoord(lat) + "," + formatCoord(lng)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("geo: build request %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("geo: request %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("geo: код ответа %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("geo: decode %w", err)
	}
	return nil
}
