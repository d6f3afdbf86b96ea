package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SearchPaths are tried in order when no explicit config path is given
var SearchPaths = []string{"config.yml", "config.yaml", "./etl/config.yml"}

// LoadEnvironment reads, overrides and validates the environment.
// An empty path searches SearchPaths.
func LoadEnvironment(path string) (Environment, error) {
	paths := SearchPaths
	if path != "" {
		paths = []string{path}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Environment{}, err
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON environment on top of the defaults, applies
// ETL_* overrides and validates the result.
func Parse(data []byte) (Environment, error) {
	env := Default()
	if err := yaml.Unmarshal(data, &env); err != nil {
		return Environment{}, fmt.Errorf("decode environment: %w", err)
	}
	env.applyEnvOverrides()
	if err := Validate(env); err != nil {
		return Environment{}, err
	}
	return env, nil
}

// FromProcessEnv returns the defaults with ETL_* overrides applied, for runs
// without a config file. The result is not validated.
func FromProcessEnv() Environment {
	env := Default()
	env.applyEnvOverrides()
	return env
}

// Validate checks the environment against its struct tags
func Validate(env Environment) error {
	v := validator.New()
	if err := v.RegisterValidation("tolerance", validateTolerance); err != nil {
		return err
	}
	return v.Struct(env)
}

// validateTolerance rejects tolerances that parse to a negative number.
// Non-numeric values are accepted and fall back to 1 in Tolerance.
func validateTolerance(fl validator.FieldLevel) bool {
	t, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	if err != nil {
		return true
	}
	return t >= 0
}

// Tolerance returns the numeric simplification tolerance, 1 when unset,
// zero or not a number
func (e Environment) Tolerance() float64 {
	t, err := strconv.ParseFloat(strings.TrimSpace(e.SimplifyTrackHistoryTolerance), 64)
	if err != nil || t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 1
	}
	return t
}

// Timeout returns the HTTP timeout; zero means no timeout
func (e Environment) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// applyEnvOverrides lets the platform inject scalar options through the
// process environment. Unparseable booleans are ignored.
func (e *Environment) applyEnvOverrides() {
	if v := os.Getenv("ETL_URL"); v != "" {
		e.URL = v
	}
	if v := os.Getenv("ETL_SIMPLIFY_TRACK_HISTORY_TOLERANCE"); v != "" {
		e.SimplifyTrackHistoryTolerance = v
	}
	if v := os.Getenv("ETL_ID_PREFIX"); v != "" {
		e.IDPrefix = v
	}
	if v := os.Getenv("ETL_LAYOUT"); v != "" {
		e.Layout = strings.ToLower(v)
	}
	overrideBool("ETL_REMOVE_ID", &e.RemoveID)
	overrideBool("ETL_SHOW_TRACK_HISTORY", &e.ShowTrackHistory)
	overrideBool("ETL_SIMPLIFY_TRACK_HISTORY", &e.SimplifyTrackHistory)
}

func overrideBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}
