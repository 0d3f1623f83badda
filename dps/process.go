// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package dps is the Facade: the single entry point a host process uses to
// reach a named store, a distributed lock, or the global TTL namespace,
// backed by whichever NoSQL backend the config file names. Process is a
// lazily-initialized, process-wide singleton reached through Global — never
// hidden behind an implicit package-level constructor, since a caller
// should decide for itself when connection setup happens.
package dps

import (
	"context"
	"sync"
	"time"

	"github.com/streamdps/dps/config"
	"github.com/streamdps/dps/internal/errorstate"
	"github.com/streamdps/dps/internal/lockmgr"
	"github.com/streamdps/dps/internal/storemgr"
	"github.com/streamdps/dps/internal/ttlns"
	"github.com/streamdps/dps/observability/logging"
	"github.com/streamdps/dps/observability/metrics"
	"github.com/streamdps/dps/pkg/driver"
	"github.com/streamdps/dps/pkg/errors"
)

// Process owns one backend connection and every component layered on top of
// it. Methods are safe for concurrent use by multiple goroutines.
type Process struct {
	cfg *config.Config
	log logging.Logger

	drv   driver.KVDriver
	lock  *lockmgr.Manager
	store *storemgr.Manager
	ttl   *ttlns.Namespace

	metrics metrics.Collector

	storeErr *errorstate.State
	ttlErr   *errorstate.State

	initMu      sync.Mutex
	initialized bool
}

var (
	globalOnce sync.Once
	global     *Process
)

// Global returns the process-wide singleton, constructing it on first call.
// It is not itself connected — call Initialize before using it.
func Global() *Process {
	globalOnce.Do(func() {
		global = &Process{
			storeErr: errorstate.New(),
			ttlErr:   errorstate.New(),
			metrics:  metrics.NewNoopCollector(),
		}
	})
	return global
}

// New builds an unconnected, independent Process — the constructor
// test/integration uses to run two cooperating processes against the same
// backend within one test binary, since Global() would alias them.
func New() *Process {
	return &Process{
		storeErr: errorstate.New(),
		ttlErr:   errorstate.New(),
		metrics:  metrics.NewNoopCollector(),
	}
}

// Initialize loads configPath (or DefaultConfigPath if empty), dials the
// configured backend, and wires every component on top of it. Calling
// Initialize twice on the same Process without an intervening Shutdown
// returns ErrReconnectNeeded.
func (p *Process) Initialize(configPath string) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return errors.ErrReconnectNeeded.WithMessage("process already initialized; call Shutdown first")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return p.initializeWithConfig(cfg)
}

// InitializeWithConfig wires the Process from an already-loaded config,
// skipping the file read — useful for tests and for hosts that assemble a
// config.Config programmatically.
func (p *Process) InitializeWithConfig(cfg *config.Config) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return errors.ErrReconnectNeeded.WithMessage("process already initialized; call Shutdown first")
	}
	return p.initializeWithConfig(cfg)
}

func (p *Process) initializeWithConfig(cfg *config.Config) error {
	logger, err := logging.NewZapLogger(logging.Level(cfg.Logging.Level), cfg.Logging.Format)
	if err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	p.log = logger

	drv, err := newDriver(driver.BackendName(cfg.Backend.Name), cfg.Backend)
	if err != nil {
		return errors.ErrConnectionFailed.Wrap(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.ConnectTimeout)
	defer cancel()

	creds := driver.Credentials{
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		APIKey:   cfg.Backend.APIKey,
	}
	if err := drv.Connect(ctx, cfg.Backend.Servers, creds); err != nil {
		p.log.Error(ctx, "backend connect failed", logging.String("backend", cfg.Backend.Name), logging.Error(err))
		return err
	}

	p.wireComponents(cfg, drv)
	p.log.Info(ctx, "dps process initialized", logging.String("backend", cfg.Backend.Name))
	return nil
}

// InitializeWithDriver wires the Process over drv, an already-connected
// driver.KVDriver the caller built and dialed itself — skipping both the
// config file read and newDriver's closed backend-name switch. This is how
// two independent Process instances attach to one shared driver.KVDriver
// in-process (e.g. memdriver.New()) without a real network hop between
// them, and how a host embeds a KVDriver implementation outside the
// 9-backend set newDriver knows how to construct.
func (p *Process) InitializeWithDriver(cfg *config.Config, drv driver.KVDriver) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if p.initialized {
		return errors.ErrReconnectNeeded.WithMessage("process already initialized; call Shutdown first")
	}
	logger, err := logging.NewZapLogger(logging.Level(cfg.Logging.Level), cfg.Logging.Format)
	if err != nil {
		return errors.ErrBackendDriverError.Wrap(err)
	}
	p.log = logger
	p.wireComponents(cfg, drv)
	return nil
}

func (p *Process) wireComponents(cfg *config.Config, drv driver.KVDriver) {
	var hashTag func(int64) string
	if driver.BackendName(cfg.Backend.Name) == driver.BackendRedisCluster ||
		driver.BackendName(cfg.Backend.Name) == driver.BackendRedisClusterPlusPlus {
		hashTag = redisClusterHashTag
	}

	if cfg.Metrics.Enabled {
		p.metrics = metrics.NewPrometheusCollector()
	} else {
		p.metrics = metrics.NewNoopCollector()
	}

	p.cfg = cfg
	p.drv = drv
	p.lock = lockmgr.New(drv)
	p.store = storemgr.New(drv, hashTag)
	p.ttl = ttlns.New(drv)
	p.initialized = true
}

// Shutdown releases the backend connection, allowing a later Initialize.
func (p *Process) Shutdown() error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	p.drv = nil
	p.lock = nil
	p.store = nil
	p.ttl = nil
	return nil
}

// lease/wait defaults, overridable per config.
func (p *Process) lockDefaults() (time.Duration, time.Duration) {
	return p.cfg.Lock.DefaultLease, p.cfg.Lock.DefaultMaxWait
}

// Logger exposes the process's structured logger, e.g. for a host that wants
// to log alongside DPS at the same sink.
func (p *Process) Logger() logging.Logger { return p.log }

// Metrics exposes the process's metrics collector, e.g. for a host that
// wants to mount its /metrics HTTP handler.
func (p *Process) Metrics() metrics.Collector { return p.metrics }

// Driver exposes the process's backend driver, e.g. for a host that wants to
// wire a health.BackendChecker into its own readiness checks.
func (p *Process) Driver() driver.KVDriver { return p.drv }

// BackendName returns the configured backend's name, or "" if the process
// has not been initialized.
func (p *Process) BackendName() string {
	if p.cfg == nil {
		return ""
	}
	return p.cfg.Backend.Name
}
