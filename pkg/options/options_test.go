package options

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matst80/slask-audience/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const optionsJson = `{"branches":["A","B"],"branch_city_map":{"A":["X"]},"brand_hierarchy":[{"brand":"BrandX","section":"Phones","product":"Mobile","model":"M1","item":"I1"}]}`

type countingSource struct {
	calls int
	opts  *types.CampaignOptions
	err   error
}

func (c *countingSource) Fetch(ctx context.Context) (*types.CampaignOptions, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.opts.Clone(), nil
}

type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (m *memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(optionsJson))
	}))
	defer srv.Close()

	opts, err := NewHTTPSource(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, opts.Branches)
	require.Len(t, opts.BrandHierarchy, 1)
	assert.Equal(t, "M1", opts.BrandHierarchy[0].Model)
}

func TestHTTPSourceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL).Fetch(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestFileSourceFormats(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "options.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(optionsJson), 0o644))
	yamlPath := filepath.Join(dir, "options.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("branches: [A, B]\nbranch_city_map:\n  A: [X]\n"), 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		opts, err := NewFileSource(path).Fetch(context.Background())
		require.NoError(t, err, path)
		assert.Equal(t, []string{"A", "B"}, opts.Branches, path)
		assert.Equal(t, []string{"X"}, opts.BranchCityMap["A"], path)
	}

	_, err := NewFileSource(filepath.Join(dir, "missing.json")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestSnapshotWriterFeedsFileSource(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "options.json.gz")
	primary := &countingSource{opts: &types.CampaignOptions{Branches: []string{"A"}}}

	_, err := NewSnapshotWriter(primary, snapshot).Fetch(context.Background())
	require.NoError(t, err)

	opts, err := NewFileSource(snapshot).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, opts.Branches)
}

func TestFallbackSource(t *testing.T) {
	broken := &countingSource{err: errors.New("down")}
	good := &countingSource{opts: &types.CampaignOptions{Branches: []string{"B"}}}

	opts, err := FallbackSource{broken, good}.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, opts.Branches)
	assert.Equal(t, 1, broken.calls)

	_, err = FallbackSource{broken}.Fetch(context.Background())
	assert.ErrorContains(t, err, "down")
	_, err = FallbackSource{}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	src := &countingSource{opts: &types.CampaignOptions{Branches: []string{"A"}}}
	kv := &memoryKV{data: map[string][]byte{}}
	now := time.Unix(1000, 0)
	cached := NewCachedSource(src, kv, 10*time.Minute)
	cached.now = func() time.Time { return now }

	for range 3 {
		opts, err := cached.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, opts.Branches)
	}
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, kv.data, defaultCacheKey)

	// memo expired, shared cache still warm
	now = now.Add(2 * time.Minute)
	_, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	require.NoError(t, cached.Invalidate(context.Background()))
	_, err = cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedSourceSurvivesBrokenCache(t *testing.T) {
	src := &countingSource{opts: &types.CampaignOptions{Branches: []string{"A"}}}
	kv := &memoryKV{data: map[string][]byte{}, err: errors.New("connection refused")}

	opts, err := NewCachedSource(src, kv, time.Minute).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, opts.Branches)
}

func TestCachedSourceReturnsCopies(t *testing.T) {
	src := &countingSource{opts: &types.CampaignOptions{Branches: []string{"A"}}}
	cached := NewCachedSource(src, nil, time.Minute)

	first, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	first.Branches[0] = "changed"

	second, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, second.Branches)
}
