package store

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"

	"bugshot-cli/internal/model"
)

func TestLoadOptions_MissingFile_ReturnsDefaults(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	o, err := s.LoadOptions()
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if !reflect.DeepEqual(o, model.DefaultOptions()) {
		t.Fatalf("expected defaults, got %#v", o)
	}
}

func TestSaveOptions_RoundTrip(t *testing.T) {
	s := Store{Dir: t.TempDir()}
	off := false
	want := model.Options{
		DefaultWorkspaceID: 11,
		DefaultProjectID:   22,
		TrackingProjectID:  33,
		AsanaHostPort:      "asana.example.test:8443",
		TitlePrefix:        "[QA]",
		ProjectFilter:      "Client *",
		CDPEndpoint:        "http://127.0.0.1:9333",
		AttachPageLink:     true,
		EstimatesEnabled:   &off,
	}
	if err := s.SaveOptions(want); err != nil {
		t.Fatalf("SaveOptions: %v", err)
	}
	got, err := s.LoadOptions()
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestSaveOptions_ConcurrentWriters_DoesNotCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := Store{Dir: dir}
	if err := s.SaveOptions(model.DefaultOptions()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const n = 32
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := s.LoadOptions()
			if err != nil {
				errCh <- err
				return
			}
			o.DefaultProjectID = int64(i + 1)
			o.TitlePrefix = fmt.Sprintf("[W%d]", i)
			if err := s.SaveOptions(o); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveOptions: %v", err)
	}
	if t.Failed() {
		return
	}

	raw, err := os.ReadFile(s.optionsPath())
	if err != nil {
		t.Fatalf("read options.json: %v", err)
	}
	var o model.Options
	if err := json.Unmarshal(raw, &o); err != nil {
		t.Fatalf("options.json corrupted: %v\nraw:\n%s", err, string(raw))
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "options.json.") && strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestSetOption(t *testing.T) {
	o := model.DefaultOptions()
	cases := []struct {
		key, value string
		wantErr    bool
	}{
		{"tracking_project_id", "1234", false},
		{"default_workspace_id", "abc", true},
		{"estimates_enabled", "false", false},
		{"estimates_enabled", "maybe", true},
		{"TITLE_PREFIX", "[Defect]", false},
		{"nope", "x", true},
	}
	for _, tc := range cases {
		err := SetOption(&o, tc.key, tc.value)
		if (err != nil) != tc.wantErr {
			t.Fatalf("SetOption(%q, %q): err=%v wantErr=%v", tc.key, tc.value, err, tc.wantErr)
		}
	}
	if o.TrackingProjectID != 1234 || o.Estimates() || o.TitlePrefix != "[Defect]" {
		t.Fatalf("options not applied: %#v", o)
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	d := t.TempDir()
	t.Setenv("BUGSHOT_CONFIG_DIR", d)
	got, err := ConfigDir()
	if err != nil || got != d {
		t.Fatalf("ConfigDir = %q, %v; want %q", got, err, d)
	}
	s, err := Open("")
	if err != nil || s.Dir != d {
		t.Fatalf("Open(\"\") = %#v, %v", s, err)
	}
}
