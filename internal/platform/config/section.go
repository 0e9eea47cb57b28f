package config

import (
	"os"
	"path/filepath"
	"strings"

	perr "quakeingest/internal/platform/errors"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadSection reads one named section of a config file and returns its
// key/values unchanged. The format follows the extension: .yaml/.yml files
// hold a top level mapping of sections, anything else is parsed as INI.
// A missing file or section is a config error
func LoadSection(path, section string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlSection(path, section)
	default:
		return iniSection(path, section)
	}
}

func iniSection(path, section string) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         false,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "read %s", path)
	}
	if !f.HasSection(section) {
		return nil, perr.Configf("section %s not found in the %s file", section, path)
	}
	return f.Section(section).KeysHash(), nil
}

func yamlSection(path, section string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "read %s", path)
	}
	// scalars of any type decode to their literal text (port: 5432 -> "5432")
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "parse %s", path)
	}
	kv, ok := doc[section]
	if !ok {
		return nil, perr.Configf("section %s not found in the %s file", section, path)
	}
	if kv == nil {
		kv = map[string]string{}
	}
	return kv, nil
}
