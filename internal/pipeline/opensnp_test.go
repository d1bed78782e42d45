package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Phenotype 24: Yes has user1 and user2, No has user3; only user1 and user3
// have a 23andMe export. Runs scrape, download and validation back to back.
func TestOpenSNPPipeline_Phenotype24(t *testing.T) {
	server, _ := newGenotypeServer(t)
	root := t.TempDir()
	ctx := context.Background()

	result, err := Scrape(ctx, phenotype24Source(server.URL), 24, 2, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"user2"}, result.FailedUsers)

	fetcher := &Fetcher{Client: testClient(), Root: root, Workers: 2, Logger: testLogger()}
	fetched, err := fetcher.Fetch(ctx, result.Phenotype, result.Manifest)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched.Downloaded)
	assert.Empty(t, fetched.Failures)

	for variant, want := range map[string]string{"Yes": "user1.23andme.11", "No": "user3.23andme.33"} {
		entries, err := os.ReadDir(filepath.Join(root, "24", variant))
		require.NoError(t, err)
		require.Len(t, entries, 1, variant)
		assert.Equal(t, want, entries[0].Name())
	}

	validated, err := (&Validator{Root: root, Logger: testLogger()}).Validate(result.Phenotype)
	require.NoError(t, err)
	assert.Equal(t, 2, validated.Checked)
	assert.Empty(t, validated.Quarantined)
	assert.NoDirExists(t, QuarantineDir(root, "24"))
}
