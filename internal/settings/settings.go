// Package settings persists mutable tool state in an INI file: the last
// used project path and last touched post, plus optional keyword API
// credentials. The object is loaded once at startup, injected where needed,
// and saved on shutdown.
package settings

import (
	"fmt"

	"gopkg.in/ini.v1"
)

const (
	settingsSection = "settings"
	apiSection      = "api"
)

// Settings is the mutable state behind config.ini.
type Settings struct {
	path string

	ProjectPath string
	LastPost    string

	// Read-only API credential overrides from the [api] section.
	APIKey  string
	BaseURL string
	Model   string
}

// Load reads settings from path. A missing file yields defaults without
// error; the file is created on the first Save.
func Load(path string) (*Settings, error) {
	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("settings: load %s: %w", path, err)
	}
	s := &Settings{path: path}
	sec := f.Section(settingsSection)
	s.ProjectPath = sec.Key("project_path").String()
	s.LastPost = sec.Key("last_post").String()

	api := f.Section(apiSection)
	s.APIKey = api.Key("key").String()
	s.BaseURL = api.Key("base_url").String()
	s.Model = api.Key("model").String()
	return s, nil
}

// Save writes the mutable [settings] keys back, preserving any other
// sections present in the file.
func (s *Settings) Save() error {
	f, err := ini.LooseLoad(s.path)
	if err != nil {
		return fmt.Errorf("settings: reload %s: %w", s.path, err)
	}
	sec := f.Section(settingsSection)
	sec.Key("project_path").SetValue(s.ProjectPath)
	sec.Key("last_post").SetValue(s.LastPost)
	if err := f.SaveTo(s.path); err != nil {
		return fmt.Errorf("settings: save %s: %w", s.path, err)
	}
	return nil
}
