// Package configloader builds sinklog.InitSettings from environment
// variables, YAML documents and files using viper. Unset keys keep the
// values of sinklog.DefaultSettings.
package configloader

import (
	"bytes"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/viper"

	"github.com/hyp3rd/sinklog"
)

const defaultEnvPrefix = "SINKLOG"

// FromEnv loads settings sourced from environment variables using the provided prefix.
// Environment keys are normalized by uppercasing and replacing dots with underscores,
// e.g. APP_MAX_FILE_COUNT for prefix "app".
func FromEnv(prefix string) (sinklog.InitSettings, error) {
	viperInstance := viper.New()

	err := bindEnvironment(viperInstance, normalizePrefix(prefix))
	if err != nil {
		return sinklog.InitSettings{}, err
	}

	raw, err := loadRawFromViper(viperInstance)
	if err != nil {
		return sinklog.InitSettings{}, err
	}

	return applyRaw(raw)
}

// FromYAML loads settings from a YAML document provided as bytes.
func FromYAML(data []byte) (sinklog.InitSettings, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigType("yaml")

	err := viperInstance.ReadConfig(bytes.NewReader(data))
	if err != nil {
		return sinklog.InitSettings{}, ewrap.Wrap(err, "failed to read YAML configuration")
	}

	raw, err := loadRawFromViper(viperInstance)
	if err != nil {
		return sinklog.InitSettings{}, err
	}

	return applyRaw(raw)
}

// FromFile loads settings from a YAML file and merges environment overrides using the default prefix.
func FromFile(path string) (sinklog.InitSettings, error) {
	viperInstance := viper.New()

	err := bindEnvironment(viperInstance, defaultEnvPrefix)
	if err != nil {
		return sinklog.InitSettings{}, err
	}

	viperInstance.SetConfigFile(path)

	err = viperInstance.ReadInConfig()
	if err != nil {
		return sinklog.InitSettings{}, ewrap.Wrap(err, "failed to read configuration file").
			WithMetadata("path", path)
	}

	raw, err := loadRawFromViper(viperInstance)
	if err != nil {
		return sinklog.InitSettings{}, err
	}

	return applyRaw(raw)
}

func loadRawFromViper(viperInstance *viper.Viper) (rawSettings, error) {
	var raw rawSettings

	for _, key := range allKeys() {
		if !viperInstance.IsSet(key) {
			continue
		}

		viperInstance.Set(key, viperInstance.Get(key))
	}

	err := viperInstance.Unmarshal(&raw)
	if err != nil {
		return rawSettings{}, ewrap.Wrap(err, "failed to decode configuration")
	}

	return raw, nil
}

func bindEnvironment(viperInstance *viper.Viper, prefix string) error {
	replacer := strings.NewReplacer(".", "_")
	viperInstance.SetEnvKeyReplacer(replacer)

	if prefix != "" {
		viperInstance.SetEnvPrefix(prefix)
	}

	viperInstance.AutomaticEnv()

	errorGroup := ewrap.NewErrorGroup()

	for _, key := range allKeys() {
		err := viperInstance.BindEnv(key)
		if err != nil {
			errorGroup.Add(ewrap.Wrap(err, "failed to bind environment key").
				WithMetadata("key", key).
				WithMetadata("prefix", prefix))
		}
	}

	if errorGroup.HasErrors() {
		return errorGroup
	}

	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultEnvPrefix
	}

	prefix = strings.TrimSuffix(prefix, "_")
	prefix = strings.ReplaceAll(prefix, "-", "_")

	return strings.ToUpper(prefix)
}
