package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// getenv accumulates parse errors so Load can report them all at once.
type getenv struct {
	errs []error
}

func (ge *getenv) Err() error {
	return errors.Join(ge.errs...)
}

type parseFunc[T any] func(s string) (T, error)

func getValue[T any](key string, defaultValue T, parse parseFunc[T]) (T, error) {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return defaultValue, nil
	}
	return parse(s)
}

func (ge *getenv) String(key, defaultValue string) string {
	v, err := getValue(key, defaultValue, func(s string) (string, error) {
		return s, nil
	})
	if err != nil {
		ge.errs = append(ge.errs, err)
	}
	return v
}

func (ge *getenv) Int64(key string, defaultValue int64) int64 {
	v, err := getValue(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
	if err != nil {
		ge.errs = append(ge.errs, err)
	}
	return v
}

func (ge *getenv) Bool(key string, defaultValue bool) bool {
	v, err := getValue(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q for %q", s, key)
		}
	})
	if err != nil {
		ge.errs = append(ge.errs, err)
	}
	return v
}

func (ge *getenv) Duration(key string, defaultValue time.Duration) time.Duration {
	v, err := getValue(key, defaultValue, func(s string) (time.Duration, error) {
		return time.ParseDuration(s)
	})
	if err != nil {
		ge.errs = append(ge.errs, err)
	}
	return v
}
