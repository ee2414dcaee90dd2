package clients

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/uber/h3-go/v4"

	Logger "github.com/mlens/eventpulse/utils/log"
)

const MapboxGeocodeBaseUrl = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// H3 resolutions the map front end aggregates on.
const (
	h3CoarseResolution = 4
	h3MediumResolution = 6
	h3FineResolution   = 8
)

// GeocodedLocation is a place description resolved to coordinates plus the
// H3 cells the event is bucketed into.
type GeocodedLocation struct {
	Name      string
	Country   *string
	Latitude  float64
	Longitude float64

	H3IndexRes4 string
	H3IndexRes6 string
	H3IndexRes8 string
}

type mapboxContextItem struct {
	Id   string `json:"id"`
	Text string `json:"text"`
}

type mapboxFeature struct {
	PlaceName string              `json:"place_name"`
	PlaceType []string            `json:"place_type"`
	Center    []float64           `json:"center"`
	Context   []mapboxContextItem `json:"context"`
}

type mapboxGeocodeResponse struct {
	Features []mapboxFeature `json:"features"`
}

// MapboxClient resolves free-text place descriptions through the Mapbox
// forward geocoding API.
type MapboxClient struct {
	http    *HttpClient
	baseUrl string
	token   string
}

func NewMapboxClient(token string) *MapboxClient {
	return &MapboxClient{
		http:    NewHttpClient(nil),
		baseUrl: MapboxGeocodeBaseUrl,
		token:   token,
	}
}

// Geocode resolves a place description. A blank or "none" input, or a
// place Mapbox cannot resolve, yields (nil, nil) rather than an error.
func (c *MapboxClient) Geocode(ctx context.Context, place string) (*GeocodedLocation, error) {
	if place == "" || strings.ToLower(place) == "none" {
		return nil, nil
	}

	uri := c.baseUrl + "/" + url.PathEscape(place) + ".json"
	res, err := c.http.Get(ctx, uri, map[string]string{
		"access_token": c.token,
		"limit":        "1",
		"types":        "place,region,country",
	})
	if err != nil {
		return nil, errors.Wrap(err, "mapbox geocoding request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "fail to read mapbox geocoding response")
	}

	parsed := &mapboxGeocodeResponse{}
	if err := json.Unmarshal(body, parsed); err != nil {
		return nil, errors.Wrap(err, "fail to parse mapbox geocoding response")
	}

	if len(parsed.Features) == 0 {
		Logger.Log.Warnf("no geocoding results for: %s", place)
		return nil, nil
	}

	return locationFromFeature(parsed.Features[0])
}

func locationFromFeature(feature mapboxFeature) (*GeocodedLocation, error) {
	if len(feature.Center) < 2 {
		return nil, errors.New("mapbox feature has no center coordinates")
	}
	// Mapbox centers are [lng, lat].
	lng, lat := feature.Center[0], feature.Center[1]
	if !IsValidLatLng(lat, lng) {
		return nil, errors.Errorf("mapbox feature has invalid coordinates: %f, %f", lat, lng)
	}

	location := &GeocodedLocation{
		Name:      feature.PlaceName,
		Country:   extractCountry(feature),
		Latitude:  lat,
		Longitude: lng,
	}
	location.H3IndexRes4, location.H3IndexRes6, location.H3IndexRes8 = h3Cells(lat, lng)
	return location, nil
}

// extractCountry pulls the country name from the feature context. When the
// result itself is a country the location name already carries it, so
// country stays nil.
func extractCountry(feature mapboxFeature) *string {
	for _, placeType := range feature.PlaceType {
		if placeType == "country" {
			return nil
		}
	}
	for _, item := range feature.Context {
		if strings.HasPrefix(item.Id, "country") {
			country := item.Text
			return &country
		}
	}
	return nil
}

func h3Cells(lat, lng float64) (res4, res6, res8 string) {
	latLng := h3.NewLatLng(lat, lng)
	res4 = h3.LatLngToCell(latLng, h3CoarseResolution).String()
	res6 = h3.LatLngToCell(latLng, h3MediumResolution).String()
	res8 = h3.LatLngToCell(latLng, h3FineResolution).String()
	return
}

// IsValidLatLng validates geographic coordinates.
func IsValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
