// Package search queries the OceanData file_search API for the granules
// matching a set of retrieval settings.
package search

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/oceancolor/internal/domain"
	"go.ngs.io/oceancolor/internal/log"
)

const (
	// DefaultURL is the OceanData file search endpoint.
	DefaultURL = "https://oceandata.sci.gsfc.nasa.gov/api/file_search"

	// ListingFile is the side file the listing is written to.
	ListingFile = "filelist.txt"

	noResults = "No Results Found"
)

// Client posts file_search queries.
type Client struct {
	endpoint string
	dataDir  string
	http     *http.Client
}

// NewClient creates a client for endpoint. Listings are written to
// dataDir/filelist.txt; an empty dataDir disables the side file.
func NewClient(endpoint, dataDir string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		endpoint: endpoint,
		dataDir:  dataDir,
		http:     &http.Client{Timeout: timeout},
	}
}

// Query builds the form body for the settings.
func Query(s domain.RetrievalSettings) url.Values {
	source := s.SourceProduct()
	variable := s.VariableProduct()

	v := url.Values{}
	v.Set("results_as_file", "1")
	v.Set("sensor_id", strconv.Itoa(source.SensorID))
	v.Set("dtid", strconv.Itoa(source.DatasetTypeID))
	v.Set("sdate", s.DateMin)
	v.Set("edate", s.DateMax)
	v.Set("subType", "1")
	v.Set("prod_id", variable.SearchID)
	v.Set("resolution_id", string(s.SpaceResolution))
	v.Set("period", string(s.TimeResolution))
	return v
}

// Search returns the granule filenames for the settings in listing order.
// Settings are validated before any request is made.
func (c *Client) Search(ctx context.Context, s domain.RetrievalSettings) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	body := Query(s).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Debugw("querying file search", "endpoint", c.endpoint, "query", body)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: file search: %w", domain.ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: file search returned HTTP %d", domain.ErrSourceUnreachable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file search response: %w", err)
	}

	if c.dataDir == "" {
		return ParseListing(bytes.NewReader(raw))
	}

	// The side file is the listing of record.
	path, err := WriteListing(c.dataDir, raw)
	if err != nil {
		return nil, err
	}
	log.Debugw("wrote file listing", "path", path)
	return ReadListing(c.dataDir)
}

// ParseListing splits a newline-delimited listing into filenames. Blank
// lines and the "No Results Found" marker are dropped.
func ParseListing(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == noResults {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return names, nil
}

// WriteListing stores a raw listing as dataDir/filelist.txt.
func WriteListing(dataDir string, raw []byte) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	path := filepath.Join(dataDir, ListingFile)
	if err := os.WriteFile(path, raw, 0o644); err != nil { //nolint:gosec // listing is not sensitive
		return "", fmt.Errorf("failed to write listing: %w", err)
	}
	return path, nil
}

// ReadListing reads a listing previously written by WriteListing.
func ReadListing(dataDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dataDir, ListingFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()
	return ParseListing(f)
}
