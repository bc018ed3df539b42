package geocoding

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const nominatimEndpoint = "https://nominatim.openstreetmap.org/search"

// Geocoder resolves street addresses to coordinates through Nominatim, with
// a file-backed cache so repeated runs stay within the usage policy.
type Geocoder struct {
	logger    *logrus.Logger
	cachePath string
	cache     map[string][2]float64
	cacheLock sync.RWMutex
	client    *http.Client
	lastCall  time.Time
	callLock  sync.Mutex
}

func NewGeocoder(logger *logrus.Logger, cacheDir string) *Geocoder {
	os.MkdirAll(cacheDir, 0755)

	g := &Geocoder{
		logger:    logger,
		cachePath: filepath.Join(cacheDir, "geocode_cache.json"),
		cache:     make(map[string][2]float64),
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	g.loadCache()
	return g
}

// GeocodeAddress resolves a US street address to (lat, lng).
func (g *Geocoder) GeocodeAddress(street, city, state, zip string) (float64, float64, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", street, city, state, zip)

	g.cacheLock.RLock()
	if coords, ok := g.cache[key]; ok {
		g.cacheLock.RUnlock()
		return coords[0], coords[1], nil
	}
	g.cacheLock.RUnlock()

	// Nominatim asks for at most one request per second
	g.callLock.Lock()
	if wait := time.Second - time.Since(g.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	g.lastCall = time.Now()
	g.callLock.Unlock()

	params := url.Values{}
	params.Set("street", street)
	params.Set("city", city)
	params.Set("state", state)
	params.Set("postalcode", zip)
	params.Set("country", "us")
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequest(http.MethodGet, nominatimEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "apartmentiq-server/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results for address: %s, %s", street, city)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}

	g.cacheLock.Lock()
	g.cache[key] = [2]float64{lat, lng}
	g.cacheLock.Unlock()
	g.saveCache()

	return lat, lng, nil
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cachePath)
	if err != nil {
		return
	}
	g.cacheLock.Lock()
	defer g.cacheLock.Unlock()
	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.WithError(err).Warn("Failed to load geocode cache, starting empty")
		g.cache = make(map[string][2]float64)
	}
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		return
	}
	if err := os.WriteFile(g.cachePath, data, 0644); err != nil {
		g.logger.WithError(err).Warn("Failed to persist geocode cache")
	}
}
