package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

func TestListInputFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b_23andme.txt"), "x")
	writeFile(t, filepath.Join(dir, "a_23andme.txt"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c_23andme.txt"), "x")

	paths, err := ListInputFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_23andme.txt"),
		filepath.Join(dir, "b_23andme.txt"),
		filepath.Join(dir, "notes.txt"),
	}, paths, "directories are skipped and names sorted")
}

func TestListInputFiles_Missing(t *testing.T) {
	_, err := ListInputFiles(filepath.Join(t.TempDir(), "nope"))

	var genoErr *lib.GenoError
	require.ErrorAs(t, err, &genoErr)
	assert.Equal(t, lib.CategoryFileSystem, genoErr.Category)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSelectImputationInputs(t *testing.T) {
	got := SelectImputationInputs([]string{
		"/in/user1_23andme.txt",
		"/in/user2_ancestry.txt",
		"/in/user3_23andMe.txt",
		"/in/genome.23andme.5",
	})
	assert.Equal(t, []string{"/in/user1_23andme.txt", "/in/genome.23andme.5"}, got)
}

func TestSubmitJobs(t *testing.T) {
	svc := newStubImputer()
	paths := []string{"/in/a_23andme.txt", "/in/readme.md", "/in/b_23andme.txt"}

	var seen []models.Job
	jobs, err := SubmitJobs(context.Background(), svc, paths, testLogger(), func(j models.Job) {
		seen = append(seen, j)
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Job{
		{ID: "job-1", SourceFilename: "a_23andme.txt"},
		{ID: "job-2", SourceFilename: "b_23andme.txt"},
	}, jobs)
	assert.Equal(t, jobs, seen)
	assert.Equal(t, []string{"a_23andme.txt", "b_23andme.txt"}, svc.submitted, "non-matching files are never uploaded")
	assert.NoError(t, models.ValidateJobBatch(jobs))
}

func TestSubmitJobs_NoInputs(t *testing.T) {
	jobs, err := SubmitJobs(context.Background(), newStubImputer(), []string{"/in/x.vcf"}, testLogger(), nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSubmitJobs_PartialOnFailure(t *testing.T) {
	svc := newStubImputer()
	svc.failAfter = 1
	paths := []string{"/in/a_23andme.txt", "/in/b_23andme.txt", "/in/c_23andme.txt"}

	jobs, err := SubmitJobs(context.Background(), svc, paths, testLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b_23andme.txt")
	assert.Equal(t, []models.Job{{ID: "job-1", SourceFilename: "a_23andme.txt"}}, jobs)
}

func TestSubmitJobs_DuplicateID(t *testing.T) {
	svc := newStubImputer()
	svc.fixedIDs = []string{"same", "same"}

	jobs, err := SubmitJobs(context.Background(), svc,
		[]string{"/in/a_23andme.txt", "/in/b_23andme.txt"}, testLogger(), nil)
	require.ErrorContains(t, err, "job id same")
	assert.Len(t, jobs, 1)
}
