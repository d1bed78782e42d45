package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/models"
)

func TestManifestStore_Paths(t *testing.T) {
	store := NewManifestStore("state")
	assert.Equal(t, filepath.Join("state", "scrape_24.json"), store.ManifestPath("24"))
	assert.Equal(t, filepath.Join("state", "err_24.json"), store.FailuresPath("24"))
}

func TestManifestStore_RoundTrip(t *testing.T) {
	store := NewManifestStore(t.TempDir())
	manifest := models.ScrapeManifest{
		"Yes": {"https://opensnp.org/data/1.23andme.1", "https://opensnp.org/data/2.23andme.2"},
		"No":  {"https://opensnp.org/data/3.23andme.3"},
	}

	require.NoError(t, store.SaveManifest("24", manifest))
	loaded, err := store.LoadManifest("24")
	require.NoError(t, err)
	if diff := cmp.Diff(manifest, loaded); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	_, err = store.LoadManifest("25")
	assert.True(t, IsNotExist(err), "other phenotypes have no manifest")
}

func TestManifestStore_Failures(t *testing.T) {
	store := NewManifestStore(t.TempDir())

	require.NoError(t, store.SaveFailures("24", nil))
	users, err := store.LoadFailures("24")
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, store.SaveFailures("24", []string{"user2", "user4"}))
	users, err = store.LoadFailures("24")
	require.NoError(t, err)
	assert.Equal(t, []string{"user2", "user4"}, users)
}

func TestManifestStore_RejectsInvalidManifest(t *testing.T) {
	store := NewManifestStore(t.TempDir())

	err := store.SaveManifest("24", models.ScrapeManifest{"Yes": {""}})
	assert.ErrorContains(t, err, "empty file url")
	assert.NoFileExists(t, store.ManifestPath("24"))

	bad := `{"version": 1, "phenotype": "24", "files": {"Yes": ["https://x/"]}}`
	require.NoError(t, os.WriteFile(store.ManifestPath("24"), []byte(bad), 0644))
	_, err = store.LoadManifest("24")
	assert.ErrorContains(t, err, "no usable file name")
}
