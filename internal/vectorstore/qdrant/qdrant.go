package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"briefing/internal/domain"
	"briefing/internal/vectorstore"
)

const scrollPageSize = 256

// Storage is a minimal REST client to Qdrant.
// Every user gets its own collection, recreated on each Save; cosine distance.
type Storage struct {
	url    string
	apiKey string
	prefix string
	client *http.Client
}

type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Timeout          time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "briefing"
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
	}
}

// Collection returns the collection name used for key.
func (s *Storage) Collection(key string) string {
	return s.prefix + "_" + vectorstore.SanitizeUserID(key)
}

type point struct {
	ID      int            `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Save drops the user's collection, recreates it with the snapshot dimension
// and upserts one point per chunk.
func (s *Storage) Save(ctx context.Context, key string, snap vectorstore.Snapshot) error {
	if len(snap.Chunks) != len(snap.Vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if snap.Dimension <= 0 {
		return errors.New("invalid dimension")
	}
	base := fmt.Sprintf("%s/collections/%s", s.url, s.Collection(key))

	// Best-effort: a missing collection answers 404
	if err := s.do(ctx, http.MethodDelete, base, nil, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     snap.Dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, base, body, nil); err != nil {
		return err
	}

	points := make([]point, len(snap.Chunks))
	for i := range snap.Chunks {
		points[i] = point{
			ID:     i,
			Vector: snap.Vectors[i],
			Payload: map[string]any{
				"position":    i,
				"text":        snap.Chunks[i],
				"fingerprint": snap.Fingerprint,
				"embedder":    snap.Embedder,
			},
		}
	}
	return s.do(ctx, http.MethodPut, base+"/points?wait=true", map[string]any{"points": points}, nil)
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      int            `json:"id"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
		NextPageOffset *int `json:"next_page_offset"`
	} `json:"result"`
}

// Load scrolls every point of the user's collection back into a snapshot.
func (s *Storage) Load(ctx context.Context, key string) (*vectorstore.Snapshot, error) {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.Collection(key))

	type entry struct {
		position int
		text     string
		vector   []float64
	}
	var entries []entry
	snap := &vectorstore.Snapshot{}
	var offset *int
	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			req["offset"] = *offset
		}
		var resp scrollResponse
		if err := s.do(ctx, http.MethodPost, url, req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			e := entry{position: p.ID, vector: p.Vector}
			if v, ok := p.Payload["position"].(float64); ok {
				e.position = int(v)
			}
			if v, ok := p.Payload["text"].(string); ok {
				e.text = v
			}
			if v, ok := p.Payload["fingerprint"].(string); ok {
				snap.Fingerprint = v
			}
			if v, ok := p.Payload["embedder"].(string); ok {
				snap.Embedder = v
			}
			entries = append(entries, e)
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: collection %s is empty", domain.ErrNotFound, s.Collection(key))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].position < entries[j].position })
	for _, e := range entries {
		snap.Chunks = append(snap.Chunks, e.text)
		snap.Vectors = append(snap.Vectors, e.vector)
	}
	snap.Dimension = len(snap.Vectors[0])
	return snap, nil
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: qdrant %s %s", domain.ErrNotFound, method, url)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
