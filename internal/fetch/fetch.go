// Package fetch downloads the model catalog (catalog.json and the per-family detail files) over HTTP.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shayne-snap/llmvram/internal/catalog"
)

// DefaultBaseURL is the canonical catalog location (the data/ directory of the repository).
const DefaultBaseURL = "https://raw.githubusercontent.com/shayne-snap/llmvram/main/data"

// maxConcurrent bounds parallel detail downloads.
const maxConcurrent = 4

// UserAgent is sent with every request. The CLI sets it to llmvram/<version>.
var UserAgent = "llmvram/dev"

// httpClient is swapped by tests.
var httpClient = http.DefaultClient

func joinURL(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// get fetches url and returns the body. Non-200 responses are errors carrying the status.
func get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w (check network)", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return body, nil
}

// FetchConfig downloads and decodes <baseURL>/catalog.json. The raw bytes are returned alongside.
func FetchConfig(ctx context.Context, baseURL string) (*catalog.Config, []byte, error) {
	body, err := get(ctx, joinURL(baseURL, catalog.ConfigFile))
	if err != nil {
		return nil, nil, err
	}
	cfg, err := catalog.DecodeConfig(body)
	if err != nil {
		return nil, nil, err
	}
	return cfg, body, nil
}

// FetchDetails downloads every family's detail file concurrently. The result maps each file's
// path relative to the catalog root to its raw bytes. Any failure cancels the rest.
func FetchDetails(ctx context.Context, baseURL string, cfg *catalog.Config) (map[string][]byte, error) {
	var mu sync.Mutex
	out := make(map[string][]byte, len(cfg.Models))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, fam := range cfg.Models {
		fam := fam
		rel := catalog.DetailPath(cfg, fam)
		g.Go(func() error {
			body, err := get(ctx, joinURL(baseURL, rel))
			if err != nil {
				return fmt.Errorf("%s: %w", fam.Name, err)
			}
			mu.Lock()
			out[rel] = body
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HTTPSource reads the catalog directly from a base URL.
type HTTPSource struct {
	BaseURL string
}

// Config implements catalog.Source.
func (s HTTPSource) Config(ctx context.Context) (*catalog.Config, error) {
	cfg, _, err := FetchConfig(ctx, s.BaseURL)
	return cfg, err
}

// Details implements catalog.Source.
func (s HTTPSource) Details(ctx context.Context, cfg *catalog.Config, fam catalog.Family) ([]catalog.ModelDetail, error) {
	body, err := get(ctx, joinURL(s.BaseURL, catalog.DetailPath(cfg, fam)))
	if err != nil {
		return nil, err
	}
	return catalog.DecodeDetails(body)
}

// Result summarizes an UpdateCatalog run.
type Result struct {
	Families int    `json:"families"`
	Models   int    `json:"models"`
	Dir      string `json:"dir"`
}

// UpdateCatalog downloads the whole catalog from baseURL, validates every file, and writes it under dir.
// Nothing is written unless every file downloads and parses.
func UpdateCatalog(ctx context.Context, baseURL, dir string) (*Result, error) {
	cfg, raw, err := FetchConfig(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not update catalog: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("could not update catalog: %w", err)
	}
	files, err := FetchDetails(ctx, baseURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not update catalog: %w", err)
	}
	res := &Result{Families: len(cfg.Models), Dir: dir}
	for rel, body := range files {
		var details []catalog.ModelDetail
		if err := json.Unmarshal(body, &details); err != nil {
			return nil, fmt.Errorf("could not update catalog: invalid JSON in %s: %w", rel, err)
		}
		res.Models += len(details)
	}
	files[catalog.ConfigFile] = raw
	if err := catalog.WriteCache(dir, files); err != nil {
		return nil, fmt.Errorf("could not write cache: %w", err)
	}
	log.Info().Int("families", res.Families).Int("models", res.Models).Str("dir", dir).Msg("catalog updated")
	return res, nil
}
