/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists classification sessions in SQL.
// It stores the extended session memory of each session id and a history of classified runs.
// SQLite (pure Go, CGO-free) backs the CLI; Postgres through pgx backs the server.
// Schema changes ship as embedded, numbered SQL migrations per dialect.
package storage
