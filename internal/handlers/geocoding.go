package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"binbird-backend/internal/models"
	"binbird-backend/pkg/utils"
)

// GeocodeRequest represents a request to geocode an address
type GeocodeRequest struct {
	Address string `json:"address"`
}

// GeocodedPoint is a resolved address with its coordinates
type GeocodedPoint struct {
	FormattedAddress string             `json:"formatted_address"`
	Coordinates      models.Coordinates `json:"coordinates"`
}

// BatchGeocodeRequest represents a batch request to geocode multiple addresses
type BatchGeocodeRequest struct {
	Addresses []GeocodeRequest `json:"addresses"`
}

// BatchGeocodeResponse keeps one entry per requested address, in order
type BatchGeocodeResponse struct {
	Addresses []GeocodedPoint `json:"addresses"`
	Errors    []string        `json:"errors,omitempty"`
}

// Geocode handles POST /api/geocoding/forward
func Geocode(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.Geocoder == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}

		var req GeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Address) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Address is required")
			return
		}

		point, formatted, err := env.Geocoder.Geocode(r.Context(), req.Address)
		if err != nil {
			log.Printf("Geocoding failed for address '%s': %v", req.Address, err)
			utils.RespondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to geocode: %v", err))
			return
		}

		utils.RespondJSON(w, http.StatusOK, GeocodedPoint{FormattedAddress: formatted, Coordinates: point})
	}
}

// ReverseGeocode handles POST /api/geocoding/reverse
func ReverseGeocode(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.Geocoder == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}

		var req models.Coordinates
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		address, err := env.Geocoder.ReverseGeocode(r.Context(), req)
		if err != nil {
			log.Printf("Reverse geocoding failed: %v", err)
			utils.RespondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to reverse geocode: %v", err))
			return
		}

		utils.RespondJSON(w, http.StatusOK, GeocodedPoint{FormattedAddress: address, Coordinates: req})
	}
}

// BatchGeocode handles POST /api/geocoding/forward/batch
func BatchGeocode(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.Geocoder == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service unavailable")
			return
		}

		var req BatchGeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.Addresses) == 0 {
			utils.RespondError(w, http.StatusBadRequest, "No addresses provided")
			return
		}

		response := BatchGeocodeResponse{
			Addresses: make([]GeocodedPoint, 0, len(req.Addresses)),
		}

		for i, addrReq := range req.Addresses {
			if strings.TrimSpace(addrReq.Address) == "" {
				response.Errors = append(response.Errors, fmt.Sprintf("Index %d: empty address", i))
				response.Addresses = append(response.Addresses, GeocodedPoint{})
				continue
			}

			point, formatted, err := env.Geocoder.Geocode(r.Context(), addrReq.Address)
			if err != nil {
				log.Printf("Failed to geocode address %d ('%s'): %v", i, addrReq.Address, err)
				response.Errors = append(response.Errors, fmt.Sprintf("Index %d: %v", i, err))
				// Placeholder keeps the array aligned with the request
				response.Addresses = append(response.Addresses, GeocodedPoint{FormattedAddress: addrReq.Address})
				continue
			}
			response.Addresses = append(response.Addresses, GeocodedPoint{FormattedAddress: formatted, Coordinates: point})
		}

		utils.RespondJSON(w, http.StatusOK, response)
	}
}
