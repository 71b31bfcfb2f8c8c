package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidConfig is returned when the provided config is not a pointer to a struct
// that embeds EnvConfig.
var ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

// EnvConfig is a base type that must be embedded in configuration structs
// to enable environment variable parsing.
type EnvConfig struct {
	namespace string
}

// Namespace returns the namespace the config was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

//nolint:varnamelen
func getEnvConfig(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		//nolint:exhaustruct,forcetypeassert
		if field.Anonymous && field.Type == reflect.TypeOf(EnvConfig{}) {
			if ev := v.Field(i); ev.CanAddr() {
				return ev.Addr().Interface().(*EnvConfig), nil
			}
		}
	}

	return nil, ErrInvalidConfig
}

// Parse loads configuration values from environment variables into the provided struct.
// The struct must embed EnvConfig and tag its fields with `env`, `envDefault` and,
// for nested structs, `envPrefix`. Fields without a default are required.
//
// The namespace is split on "_" and every level of it is tried as a prefix:
// with namespace "APP_SVC", the field tagged PORT reads APP_SVC_PORT, then APP_PORT,
// then PORT, taking the first one set.
func Parse(ctx context.Context, cfg any, namespace string) error {
	envConfig, err := getEnvConfig(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	envConfig.namespace = namespace

	//nolint:exhaustruct
	if err := env.ParseWithOptions(cfg, env.Options{
		Environment:     namespacedEnvironment(namespace, os.Environ()),
		RequiredIfNoDef: true,
	}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// namespacedEnvironment flattens environ into a lookup table in which every
// namespaced variable is also visible under its bare name. More specific
// namespaces overwrite less specific ones.
func namespacedEnvironment(namespace string, environ []string) map[string]string {
	vars := make(map[string]string, len(environ))

	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok {
			vars[key] = value
		}
	}

	resolved := maps.Clone(vars)

	if namespace == "" {
		return resolved
	}

	nsParts := strings.Split(namespace, "_")

	for i := 1; i <= len(nsParts); i++ {
		prefix := strings.Join(nsParts[:i], "_") + "_"

		for key, value := range vars {
			if name, ok := strings.CutPrefix(key, prefix); ok && name != "" {
				resolved[name] = value
			}
		}
	}

	return resolved
}
