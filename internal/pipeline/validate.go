package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/trobanga/genograb/internal/lib"
	"github.com/trobanga/genograb/internal/models"
)

const quarantinePrefix = "bad_"

// Quarantined is a file moved out of the phenotype tree
type Quarantined struct {
	From   string
	To     string
	Reason string
}

// ValidationReport summarizes a validation run
type ValidationReport struct {
	Checked     int
	Quarantined []Quarantined
}

// QuarantineDir returns the directory that receives rejected files of a phenotype
func QuarantineDir(root, phenotype string) string {
	return filepath.Join(root, phenotype+"-bad")
}

// Validator checks the first line of every downloaded 23andMe file for the export
// signature and quarantines the files that lack it
type Validator struct {
	Root   string
	Logger *lib.Logger
}

// Validate walks <Root>/<phenotype>. A rejected file moves to
// <Root>/<phenotype>-bad/<variant>/bad_<name>.
func (v *Validator) Validate(phenotype string) (ValidationReport, error) {
	var report ValidationReport
	phenoDir := PhenotypeDir(v.Root, phenotype)

	if _, err := os.Stat(phenoDir); err != nil {
		if os.IsNotExist(err) {
			return report, lib.ErrFileNotFound(phenoDir)
		}
		return report, fmt.Errorf("failed to access %s: %w", phenoDir, err)
	}

	// Collect first so moving files does not disturb the walk
	var candidates []string
	err := filepath.WalkDir(phenoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.Contains(d.Name(), models.ImputationFileMarker) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", phenoDir, err)
	}

	for _, path := range candidates {
		report.Checked++
		reason := checkSignature(path)
		if reason == "" {
			continue
		}

		rel, err := filepath.Rel(phenoDir, path)
		if err != nil {
			return report, err
		}
		dest := filepath.Join(QuarantineDir(v.Root, phenotype), filepath.Dir(rel), quarantinePrefix+filepath.Base(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return report, fmt.Errorf("failed to create quarantine directory: %w", err)
		}
		if err := os.Rename(path, dest); err != nil {
			return report, fmt.Errorf("failed to quarantine %s: %w", path, err)
		}

		v.Logger.Warn("File quarantined", "file", rel, "reason", reason, "moved_to", dest)
		report.Quarantined = append(report.Quarantined, Quarantined{From: path, To: dest, Reason: reason})
	}

	v.Logger.Info("Validation finished",
		"phenotype", phenotype,
		"checked", report.Checked,
		"quarantined", len(report.Quarantined))
	return report, nil
}

// checkSignature returns why path is rejected, or "" when its first line carries the signature
func checkSignature(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("unreadable: %v", err)
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Sprintf("unreadable: %v", err)
	}
	if !strings.Contains(line, models.ValidationSignature) {
		return "missing 23andMe signature"
	}
	return ""
}
