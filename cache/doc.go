// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache owns the on-disk layout of per-day indexes.
//
// Every day gets one folder named by its DateKey under the cache root:
//
//	<root>/05.08.25/index   marker written after a successful build
//	<root>/05.08.25/store/  badger files
//
// The marker is the only signal that a folder holds a reusable index. It is
// written last, through a temp file and a rename, so a build that dies half
// way leaves a folder without a marker and the next run rebuilds it.
//
// Folders whose name is not a DateKey are never touched. Pruning removes
// folders dated more than the retention period before now.
package cache
