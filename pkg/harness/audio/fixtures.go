package audio

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that parses from YAML strings like "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Fixture describes one named synthetic sample in a fixture manifest.
type Fixture struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"` // speech, silence, noise
	Duration   Duration `yaml:"duration"`
	SampleRate int      `yaml:"sample_rate"`
	Amplitude  float64  `yaml:"amplitude"` // noise only
	Speech     bool     `yaml:"speech"`    // expected LooksLikeSpeech verdict
}

// Manifest is a list of fixtures loaded from YAML.
type Manifest struct {
	Samples []Fixture `yaml:"samples"`
}

// LoadManifest reads a fixture manifest from a YAML file.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	for i, f := range m.Samples {
		if f.Name == "" {
			return Manifest{}, fmt.Errorf("sample %d has no name", i)
		}
		if f.SampleRate <= 0 {
			return Manifest{}, fmt.Errorf("sample %q has sample rate %d", f.Name, f.SampleRate)
		}
		if f.Duration <= 0 {
			return Manifest{}, fmt.Errorf("sample %q has duration %v", f.Name, time.Duration(f.Duration))
		}
	}
	return m, nil
}

// Render produces the PCM16 bytes for a fixture.
func (f Fixture) Render() ([]byte, error) {
	dur := time.Duration(f.Duration)
	switch f.Kind {
	case "speech":
		return SynthesizeSpeech(dur, f.SampleRate), nil
	case "silence":
		return Silence(dur, f.SampleRate), nil
	case "noise":
		amp := f.Amplitude
		if amp == 0 {
			amp = 0.5
		}
		return WhiteNoise(dur, f.SampleRate, amp), nil
	default:
		return nil, fmt.Errorf("unknown fixture kind %q", f.Kind)
	}
}
