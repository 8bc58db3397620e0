package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings such as "10m" in every format.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// AppRef names one app a user may open. It decodes from either a bare
// string or an object with an appId key.
type AppRef string

var errEmptyAppID = errors.New("app entry has no appId")

type appObject struct {
	AppID string `yaml:"appId" json:"appId"`
}

func (a *AppRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return a.set(node.Value)
	case yaml.MappingNode:
		var obj appObject
		if err := node.Decode(&obj); err != nil {
			return err
		}
		return a.set(obj.AppID)
	default:
		return fmt.Errorf("line %d: app entry must be a string or {appId}", node.Line)
	}
}

func (a *AppRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return a.set(s)
	}
	var obj appObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("app entry must be a string or {appId}: %w", err)
	}
	return a.set(obj.AppID)
}

// UnmarshalTOML receives the decoded primitive from BurntSushi/toml.
func (a *AppRef) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		return a.set(t)
	case map[string]any:
		id, _ := t["appId"].(string)
		return a.set(id)
	default:
		return fmt.Errorf("app entry must be a string or {appId}, got %T", v)
	}
}

func (a *AppRef) set(id string) error {
	if id == "" {
		return errEmptyAppID
	}
	*a = AppRef(id)
	return nil
}
