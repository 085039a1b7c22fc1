package config

import (
	"bytes"
	_ "embed"
	"text/template"

	cmtos "github.com/cometbft/cometbft/libs/os"
)

// The template below must stay in sync with the mapstructure tags on Config;
// a renamed field silently stops round-tripping through viper.
//
//go:embed config.toml.tpl
var defaultConfigTemplate string

var configTemplate = template.Must(template.New("configFileTemplate").Parse(defaultConfigTemplate))

// WriteConfigFile renders the DAO app config into configFilePath.
func WriteConfigFile(configFilePath string, config *Config) {
	var buffer bytes.Buffer
	if err := configTemplate.Execute(&buffer, config); err != nil {
		panic(err)
	}
	cmtos.MustWriteFile(configFilePath, buffer.Bytes(), 0o644)
}
