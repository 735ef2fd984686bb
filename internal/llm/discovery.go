package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codenerd/internal/logging"
	"codenerd/internal/pipelineerr"
)

// modelsResponse is the wire shape of a server's model-listing endpoint
// (GET /v1/models, the OpenAI-dialect convention most local inference
// servers implement).
type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// discoveryEntry is one endpoint's cached model list.
type discoveryEntry struct {
	models    []string
	expiresAt time.Time
}

// Discoverer caches, per endpoint and with a TTL, which models a server
// currently serves, so model_for() can resolve a phase role to a live
// (server, model) pair without probing on every call.
type Discoverer struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]discoveryEntry
}

// NewDiscoverer builds a Discoverer with the given cache TTL.
func NewDiscoverer(httpClient *http.Client, ttl time.Duration) *Discoverer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Discoverer{httpClient: httpClient, ttl: ttl, cache: make(map[string]discoveryEntry)}
}

// Discover queries every endpoint's /v1/models concurrently and caches
// the result. An endpoint that fails to respond is logged and simply
// reports no models, rather than failing the whole discovery pass —
// model_for's fallback walk handles an empty result the same as an
// unreachable server.
func (d *Discoverer) Discover(ctx context.Context, endpoints []string) map[string][]string {
	out := make(map[string][]string, len(endpoints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, endpoint := range endpoints {
		endpoint := endpoint
		g.Go(func() error {
			models := d.discoverOne(gctx, endpoint)
			mu.Lock()
			out[endpoint] = models
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // discoverOne never returns an error; per-endpoint failures are logged, not propagated.

	return out
}

func (d *Discoverer) discoverOne(ctx context.Context, endpoint string) []string {
	d.mu.Lock()
	if entry, ok := d.cache[endpoint]; ok && time.Now().Before(entry.expiresAt) {
		d.mu.Unlock()
		return entry.models
	}
	d.mu.Unlock()

	models, err := d.probe(ctx, endpoint)
	if err != nil {
		logging.LLM("discovery probe failed for %s: %v", endpoint, err)
		models = nil
	}

	d.mu.Lock()
	d.cache[endpoint] = discoveryEntry{models: models, expiresAt: time.Now().Add(d.ttl)}
	d.mu.Unlock()
	return models
}

func (d *Discoverer) probe(ctx context.Context, endpoint string) ([]string, error) {
	url := strings.TrimRight(endpoint, "/") + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery: %s returned status %d", endpoint, resp.StatusCode)
	}
	var parsed modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("discovery: decode %s: %w", endpoint, err)
	}
	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// candidate is one entry of a phase role's ordered model_assignments
// fallback list, parsed from the config's "model@server" notation.
type candidate struct {
	model  string
	server string
}

// parseCandidate splits "model@server" into its parts. A candidate
// with no "@server" suffix is resolved against every known endpoint in
// turn by ModelFor.
func parseCandidate(raw string) candidate {
	if idx := strings.LastIndex(raw, "@"); idx >= 0 {
		return candidate{model: raw[:idx], server: raw[idx+1:]}
	}
	return candidate{model: raw}
}

// ModelFor resolves a phase role to a live (server_url, model_id) pair
// by walking its configured candidate list in order and returning the
// first candidate whose server currently serves that model. If no
// candidate's server is currently known to serve it, ModelFor falls
// back to the first candidate verbatim so callers still get a request
// to try (the server may have the model despite a stale or failed
// discovery pass).
func (d *Discoverer) ModelFor(ctx context.Context, role string, assignments map[string][]string, endpoints []string) (server string, model string, err error) {
	candidates := assignments[role]
	if len(candidates) == 0 {
		return "", "", fmt.Errorf("llm: %w: no model_assignments configured for role %q", pipelineerr.ErrArgument, role)
	}

	available := d.Discover(ctx, endpoints)

	for _, raw := range candidates {
		c := parseCandidate(raw)
		if c.server != "" {
			if modelAvailable(available[c.server], c.model) {
				return c.server, c.model, nil
			}
			continue
		}
		for _, endpoint := range endpoints {
			if modelAvailable(available[endpoint], c.model) {
				return endpoint, c.model, nil
			}
		}
	}

	first := parseCandidate(candidates[0])
	server = first.server
	if server == "" && len(endpoints) > 0 {
		server = endpoints[0]
	}
	logging.LLM("model_for(%s): no candidate confirmed available, falling back to %s@%s", role, first.model, server)
	return server, first.model, nil
}

func modelAvailable(models []string, want string) bool {
	for _, m := range models {
		if m == want {
			return true
		}
	}
	return false
}
