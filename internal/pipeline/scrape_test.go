package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/models"
)

// stubSource serves a fixed phenotype listing and per-user file URLs
type stubSource struct {
	index   models.PhenotypeIndex
	listErr error
	files   map[string]string
	errs    map[string]error

	mu       sync.Mutex
	resolved []string
}

func (s *stubSource) FetchPhenotypeUsers(context.Context, int) (models.PhenotypeIndex, error) {
	return s.index, s.listErr
}

func (s *stubSource) ResolveGenotypeFile(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	s.resolved = append(s.resolved, userID)
	s.mu.Unlock()
	if err := s.errs[userID]; err != nil {
		return "", err
	}
	return s.files[userID], nil
}

func phenotype24Source(baseURL string) *stubSource {
	return &stubSource{
		index: models.PhenotypeIndex{
			"Yes": {"user1", "user2"},
			"No":  {"user3"},
		},
		files: map[string]string{
			"user1": baseURL + "/data/user1.23andme.11",
			"user3": baseURL + "/data/user3.23andme.33",
		},
	}
}

func TestScrape(t *testing.T) {
	source := phenotype24Source("https://opensnp.org")

	result, err := Scrape(context.Background(), source, 24, 4, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "24", result.Phenotype)
	assert.Equal(t, 3, result.Index.UserCount())
	assert.Len(t, result.Records, 3)

	want := models.ScrapeManifest{
		"Yes": {"https://opensnp.org/data/user1.23andme.11"},
		"No":  {"https://opensnp.org/data/user3.23andme.33"},
	}
	if diff := cmp.Diff(want, result.Manifest); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"user2"}, result.FailedUsers)
	assert.ElementsMatch(t, []string{"user1", "user2", "user3"}, source.resolved)
}

func TestScrape_ListingFailureIsFatal(t *testing.T) {
	source := &stubSource{listErr: errors.New("HTTP 404")}

	_, err := Scrape(context.Background(), source, 99, 2, testLogger())
	require.ErrorContains(t, err, "phenotype 99")
	assert.Empty(t, source.resolved)
}

func TestResolveFiles_FailuresBecomeUnresolvedRecords(t *testing.T) {
	source := &stubSource{
		files: map[string]string{"u1": "https://x/u1.23andme.1"},
		errs:  map[string]error{"u2": errors.New("timeout")},
	}
	index := models.PhenotypeIndex{"A": {"u1", "u2", "u3"}}

	records, err := ResolveFiles(context.Background(), source, index, 2, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []models.FileRecord{
		{UserID: "u1", Variant: "A", URL: "https://x/u1.23andme.1"},
		{UserID: "u2", Variant: "A"},
		{UserID: "u3", Variant: "A"},
	}, records)

	_, failedUsers := models.BuildManifest(records)
	assert.Len(t, failedUsers, 2, "one failure per record without a URL")
}

func TestResolveFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ResolveFiles(ctx, &stubSource{}, models.PhenotypeIndex{"A": {"u1"}}, 1, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPhenotypeKey(t *testing.T) {
	assert.Equal(t, "24", PhenotypeKey(24))
}
