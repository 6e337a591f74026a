package bridge

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cortexkit/eeg-bridge/dataset"
)

// Config maps analysis kinds onto container filenames inside a data
// folder and lets a site extend the group-name table.
type Config struct {
	// Files maps analysis-kind names to container filenames.
	Files map[string]string `yaml:"files"`
	// Groups adds site-specific group-name synonyms, e.g. "ET: 2".
	Groups map[string]int `yaml:"groups"`
}

// DefaultConfig returns the stock analysis-kind to filename mapping.
func DefaultConfig() *Config {
	return &Config{
		Files: map[string]string{
			dataset.Erp.String():                 "erp_output.eeg",
			dataset.TimeFrequency.String():       "timefreq_output.eeg",
			dataset.Spectral.String():            "spectral_output.eeg",
			dataset.Connectivity.String():        "channelwise_coherence_output.eeg",
			dataset.IntertrialCoherence.String(): "intertrial_coherence_output.eeg",
		},
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// Kind names in the file must parse; unknown names are rejected early
// rather than silently ignored at load time.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	for name, file := range loaded.Files {
		if _, err := dataset.ParseAnalysisKind(name); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Files[name] = file
	}
	cfg.Groups = loaded.Groups
	return cfg, nil
}

// PathFor returns the container path for kind inside dataFolder.
func (c *Config) PathFor(dataFolder string, kind dataset.AnalysisKind) (string, error) {
	name, ok := c.Files[kind.String()]
	if !ok {
		return "", fmt.Errorf("no container filename configured for analysis kind %v", kind)
	}
	return filepath.Join(dataFolder, name), nil
}
