/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"goscreenplay/internal/backend"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		escalate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP classification server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			store, runs, err := a.stores(ctx)
			if err != nil {
				return err
			}
			svc, err := a.service(store, runs, escalate)
			if err != nil {
				return err
			}
			a.log.Info("starting server",
				slog.String("addr", addr),
				slog.String("store", a.cfg.Store.Driver),
				slog.Bool("escalation", escalate))
			return backend.NewServer(svc, a.cfg.Server.AuthSecret).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&escalate, "escalate", false, "allow clients to request agent escalation")
	return cmd
}
