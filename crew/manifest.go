package crew

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestArtifact is the reserved artifact name of a run's manifest.
const ManifestArtifact = "run.yaml"

// Manifest records what a completed run produced, so its report can be found
// after the definitions change.
type Manifest struct {
	RunID         string    `yaml:"run_id"`
	Company       string    `yaml:"company"`
	Year          string    `yaml:"year"`
	FinalTask     string    `yaml:"final_task"`
	FinalArtifact string    `yaml:"final_artifact"`
	Artifacts     []string  `yaml:"artifacts"`
	CompletedAt   time.Time `yaml:"completed_at"`
}

// ArtifactReader reads stored run artifacts.
type ArtifactReader interface {
	Read(runID, name string) (string, error)
}

func writeManifest(store ArtifactStore, m Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := store.Write(m.RunID, ManifestArtifact, string(b)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest of a completed run. A run without one
// surfaces the store's not-found error.
func ReadManifest(store ArtifactReader, runID string) (*Manifest, error) {
	text, err := store.Read(runID, ManifestArtifact)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("decode manifest of run %s: %w", runID, err)
	}
	return &m, nil
}
