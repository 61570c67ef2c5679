package audio

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestYAML = `samples:
  - name: greeting
    kind: speech
    duration: 500ms
    sample_rate: 24000
    speech: true
  - name: dead-air
    kind: silence
    duration: 200ms
    sample_rate: 16000
    speech: false
  - name: static
    kind: noise
    duration: 200ms
    sample_rate: 16000
    amplitude: 0.7
    speech: false
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, manifestYAML))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(m.Samples))
	}

	for _, f := range m.Samples {
		pcm, err := f.Render()
		if err != nil {
			t.Fatalf("render %q: %v", f.Name, err)
		}
		stats, err := Stats(pcm)
		if err != nil {
			t.Fatalf("stats %q: %v", f.Name, err)
		}
		if got := stats.LooksLikeSpeech(); got != f.Speech {
			t.Errorf("%q: LooksLikeSpeech = %v, manifest expects %v (stats %+v)",
				f.Name, got, f.Speech, stats)
		}
	}
}

func TestLoadManifestRejectsBadEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", "samples:\n  - kind: speech\n    duration: 1s\n    sample_rate: 16000\n"},
		{"zero rate", "samples:\n  - name: x\n    kind: speech\n    duration: 1s\n    sample_rate: 0\n"},
		{"zero duration", "samples:\n  - name: x\n    kind: speech\n    duration: 0s\n    sample_rate: 16000\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadManifest(writeManifest(t, tc.content)); err == nil {
				t.Error("invalid manifest accepted")
			}
		})
	}
}

func TestShippedManifest(t *testing.T) {
	m, err := LoadManifest(filepath.Join("testdata", "samples.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Samples) == 0 {
		t.Fatal("shipped manifest is empty")
	}
	for _, f := range m.Samples {
		pcm, err := f.Render()
		if err != nil {
			t.Fatalf("render %q: %v", f.Name, err)
		}
		stats, err := Stats(pcm)
		if err != nil {
			t.Fatalf("stats %q: %v", f.Name, err)
		}
		if got := stats.LooksLikeSpeech(); got != f.Speech {
			t.Errorf("%q: LooksLikeSpeech = %v, manifest expects %v", f.Name, got, f.Speech)
		}
	}
}

func TestRenderUnknownKind(t *testing.T) {
	f := Fixture{Name: "x", Kind: "opus", Duration: 1, SampleRate: 1}
	if _, err := f.Render(); err == nil {
		t.Error("unknown kind accepted")
	}
}
