package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bugshot-cli/internal/model"
)

// LoadOptions reads options.json. A missing file yields defaults.
func (s Store) LoadOptions() (model.Options, error) {
	b, err := os.ReadFile(s.optionsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultOptions(), nil
		}
		return model.Options{}, err
	}
	var o model.Options
	if err := json.Unmarshal(b, &o); err != nil {
		return model.Options{}, fmt.Errorf("parse %s: %w", s.optionsPath(), err)
	}
	return o.WithDefaults(), nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// SaveOptions persists o immediately.
func (s Store) SaveOptions(o model.Options) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	path := s.optionsPath()
	dir := filepath.Dir(path)

	// Keep the previous file around so an accidental overwrite can be undone by hand.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "options.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	// Unique temp names so the TUI and a CLI invocation cannot clobber each other.
	return atomicWriteFile(dir, "options.json.*.tmp", path, b, 0o600)
}

// OptionKeys lists the keys accepted by SetOption, in display order.
var OptionKeys = []string{
	"default_workspace_id",
	"default_project_id",
	"tracking_project_id",
	"asana_host_port",
	"title_prefix",
	"estimates_enabled",
	"project_filter",
	"cdp_endpoint",
	"attach_page_link",
	"login_url",
	"signup_url",
}

// SetOption applies a string value to a named option.
func SetOption(o *model.Options, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	value = strings.TrimSpace(value)
	parseID := func() (int64, error) {
		if value == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s: expected a numeric id, got %q", key, value)
		}
		return n, nil
	}
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: expected true|false, got %q", key, value)
		}
		return b, nil
	}

	switch key {
	case "default_workspace_id":
		n, err := parseID()
		if err != nil {
			return err
		}
		o.DefaultWorkspaceID = n
	case "default_project_id":
		n, err := parseID()
		if err != nil {
			return err
		}
		o.DefaultProjectID = n
	case "tracking_project_id":
		n, err := parseID()
		if err != nil {
			return err
		}
		o.TrackingProjectID = n
	case "asana_host_port":
		o.AsanaHostPort = value
	case "title_prefix":
		o.TitlePrefix = value
	case "estimates_enabled":
		b, err := parseBool()
		if err != nil {
			return err
		}
		o.EstimatesEnabled = &b
	case "project_filter":
		o.ProjectFilter = value
	case "cdp_endpoint":
		o.CDPEndpoint = value
	case "attach_page_link":
		b, err := parseBool()
		if err != nil {
			return err
		}
		o.AttachPageLink = b
	case "login_url":
		o.LoginURLOverride = value
	case "signup_url":
		o.SignupURLOverride = value
	default:
		return fmt.Errorf("unknown option %q (expected one of: %s)", key, strings.Join(OptionKeys, ", "))
	}
	return nil
}
