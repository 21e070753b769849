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
	"os"
	"os/signal"
	"syscall"

	"goscreenplay/internal/crash"
	applog "goscreenplay/internal/log"
)

func main() {
	// initialize structured logging using environment defaults; the config file may refine it
	applog.Init(applog.FromEnv())
	scope := &crash.Scope{}
	defer crash.Recover(scope)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, scope)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, scope *crash.Scope) int {
	root := newRootCmd(os.Stdin, os.Stdout, scope)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
