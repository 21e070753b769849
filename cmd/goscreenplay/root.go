/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"goscreenplay/internal/backend"
	"goscreenplay/internal/config"
	"goscreenplay/internal/crash"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/memory"
	"goscreenplay/internal/storage"
	"goscreenplay/internal/telemetry"
	"goscreenplay/internal/version"
)

// app is the state shared by all commands of one invocation.
type app struct {
	in      io.Reader
	out     io.Writer
	scope   *crash.Scope
	cfgPath string
	cfg     config.AppConfig
	token   string
	log     *slog.Logger

	store      memory.Store
	runs       backend.RunStore
	closeStore func() error
}

func newRootCmd(in io.Reader, out io.Writer, scope *crash.Scope) *cobra.Command {
	a := &app{in: in, out: out, scope: scope}
	root := &cobra.Command{
		Use:   "goscreenplay",
		Short: "Classify Arabic screenplay lines",
		Long: `goscreenplay assigns a screenplay element type to every line of an Arabic
script, reviews the result for suspicious lines and can escalate the worst
of them to a remote review agent.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.closeStore != nil {
				if err := a.closeStore(); err != nil {
					a.log.Warn("closing store failed", slog.Any("err", err))
				}
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), time.Second)
			defer cancel()
			telemetry.FlushDefault(ctx)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default: user config dir/goscreenplay/config.yaml)")

	root.AddCommand(
		newClassifyCmd(a),
		newReviewCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(a.out, "goscreenplay", version.String())
			return err
		},
	}
}

// load reads the configuration and applies its logging and telemetry sections.
func (a *app) load() error {
	path, err := a.configPath()
	if err != nil {
		return err
	}
	a.cfg, a.token, err = config.LoadFrom(path)
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	applog.Init(a.cfg.LogOptions())
	telemetry.NewDefault(a.cfg.TelemetryOptions())
	a.log = applog.WithComponent("cli")
	if a.scope != nil && a.cfg.Logging.File != "" {
		a.scope.ReportDir = filepath.Dir(a.cfg.Logging.File)
	}
	return nil
}

// stores opens the configured session store once per invocation.
func (a *app) stores(ctx context.Context) (memory.Store, backend.RunStore, error) {
	if a.store != nil {
		return a.store, a.runs, nil
	}
	switch a.cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		st, err := storage.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.store, a.runs, a.closeStore = st, st, st.Close
	default:
		a.store = memory.NewCacheStore(a.cfg.Store.StoreTTL())
	}
	return a.store, a.runs, nil
}

// service builds the classification service; escalate requires an agent endpoint.
func (a *app) service(store memory.Store, runs backend.RunStore, escalate bool) (*backend.Service, error) {
	opts := backend.Options{
		ContextWindow:  a.cfg.Classifier.ContextWindow,
		MemoryCapacity: a.cfg.Classifier.MemoryCapacity,
		ReviewRadius:   a.cfg.Review.Radius,
		Store:          store,
		Runs:           runs,
	}
	if escalate {
		if a.cfg.Agent.Endpoint == "" {
			return nil, fmt.Errorf("escalation needs agent.endpoint (or %s)", config.EnvAgentEndpoint)
		}
		ec := a.cfg.Escalation(a.token)
		opts.Escalation = &ec
	}
	return backend.NewService(opts), nil
}
