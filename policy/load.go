// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/reqi/errs"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Recognized option keys. Keys from untyped sources are matched
// case-insensitively with underscores ignored, so "retry_codes",
// "retryCodes" and "RETRYCODES" all name the retry code set.
const (
	keyRedirect   = "redirect"
	keyRetry      = "retry"
	keyRetryCodes = "retrycodes"
	keyMaxWait    = "maxwait"
	keyDecodeJSON = "decodejson"
)

// FromMap builds a policy from loosely typed options, such as the
// result of decoding a JSON document. Options not present in m keep
// their default values.
//
// Recognized options and accepted shapes are:
//
//	redirect, retry   bool, non-negative integer, or a string holding either
//	retryCodes        integer, list of integers, or comma-separated string
//	maxWait           number of seconds, or a duration string such as "1500ms"
//	decodeJSON        bool, or a string holding one
//
// The returned error, if any, is an *errs.Error of kind
// InvalidClientOptions.
func FromMap(m map[string]any) (Policy, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return Policy{}, invalid("", err)
	}
	return fromKoanf(k)
}

// FromYAML builds a policy from a YAML document whose top-level keys
// are the options recognized by FromMap.
func FromYAML(b []byte) (Policy, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return Policy{}, invalid("", err)
	}
	return fromKoanf(k)
}

// FromEnv builds a policy from environment variables named by prefix
// followed by an option name, for example REQI_RETRY_CODES=429,503
// with prefix "REQI_".
func FromEnv(prefix string) (Policy, error) {
	k := koanf.New(".")
	provider := env.Provider(".", env.Opt{
		Prefix: prefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.TrimPrefix(key, prefix), value
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return Policy{}, invalid("", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (Policy, error) {
	opts := make(map[string]any)
	for key, value := range k.All() {
		opts[normalizeKey(key)] = value
	}

	p := Default()
	var err error
	if v, ok := opts[keyRedirect]; ok {
		if p.Redirect, err = toLimit(v); err != nil {
			return Policy{}, invalid(keyRedirect, err)
		}
	}
	if v, ok := opts[keyRetry]; ok {
		if p.Retry, err = toLimit(v); err != nil {
			return Policy{}, invalid(keyRetry, err)
		}
	}
	if v, ok := opts[keyRetryCodes]; ok {
		if p.RetryCodes, err = toCodes(v); err != nil {
			return Policy{}, invalid(keyRetryCodes, err)
		}
	}
	if v, ok := opts[keyMaxWait]; ok {
		if p.MaxWait, err = toWait(v); err != nil {
			return Policy{}, invalid(keyMaxWait, err)
		}
	}
	if v, ok := opts[keyDecodeJSON]; ok {
		if p.DecodeJSON, err = toBool(v); err != nil {
			return Policy{}, invalid(keyDecodeJSON, err)
		}
	}

	p = p.Normalize()
	if err = p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}

func invalid(key string, err error) error {
	msg := invalidOptionsMsg
	if key != "" {
		msg += ": " + key
	}
	return &errs.Error{Kind: errs.InvalidClientOptions, Message: msg, Err: err}
}

func toLimit(v any) (Limit, error) {
	switch x := v.(type) {
	case bool:
		return Of(x), nil
	case string:
		s := strings.TrimSpace(x)
		if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
			return Of(strings.EqualFold(s, "true")), nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return Never, fmt.Errorf("want bool or integer, got %q", x)
		}
		return toLimit(n)
	default:
		n, err := toInt(v)
		if err != nil {
			return Never, err
		}
		if n < 0 {
			return Never, fmt.Errorf("want non-negative integer, got %d", n)
		}
		return Limit(n), nil
	}
}

func toCodes(v any) ([]int, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		var codes []int
		for _, part := range strings.Split(x, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("want status code, got %q", part)
			}
			codes = append(codes, n)
		}
		return codes, nil
	case []int:
		return x, nil
	case []any:
		codes := make([]int, 0, len(x))
		for _, elem := range x {
			n, err := toInt(elem)
			if err != nil {
				return nil, err
			}
			codes = append(codes, n)
		}
		return codes, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
}

func toWait(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("want seconds or duration, got %q", x)
		}
		return seconds(f)
	case float32:
		return seconds(float64(x))
	case float64:
		return seconds(x)
	default:
		n, err := toInt(v)
		if err != nil {
			return 0, err
		}
		return seconds(float64(n))
	}
}

func seconds(f float64) (time.Duration, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("want finite seconds, got %v", f)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("want bool, got %q", x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("want bool, got %T", v)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return int(x), nil
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float32:
		return toInt(float64(x))
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("want integer, got %v", x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
