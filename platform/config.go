// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// envThresholds mirrors the two environment-configurable collector
// thresholds. The envconfig tags carry the exact variable names rather
// than a prefix-derived name, since those names are part of the core's
// documented contract.
type envThresholds struct {
	MajorCollection string `envconfig:"MAJOR_COLLECTION"`
	IncMark         string `envconfig:"INCMARK"`
}

// EnvConfigSource implements collector.ConfigSource by loading
// MAJOR_COLLECTION and INCMARK from the process environment once, at
// construction, via envconfig.
type EnvConfigSource struct {
	vars envThresholds
}

// NewEnvConfigSource reads the environment immediately.
func NewEnvConfigSource() (*EnvConfigSource, error) {
	var vars envThresholds
	if err := envconfig.Process("", &vars); err != nil {
		return nil, errors.Wrap(err, "platform: load environment configuration")
	}
	return &EnvConfigSource{vars: vars}, nil
}

func (s *EnvConfigSource) Lookup(name string) (string, bool) {
	switch name {
	case "MAJOR_COLLECTION":
		return s.vars.MajorCollection, s.vars.MajorCollection != ""
	case "INCMARK":
		return s.vars.IncMark, s.vars.IncMark != ""
	default:
		return "", false
	}
}
