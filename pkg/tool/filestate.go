// Copyright 2025 The agentcore Authors
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

package tool

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"
)

// FileReadState is a content-hash ledger keyed by canonical path: the
// "staleness" guard the edit tool consults before writing. A path must
// have been read (hash recorded) in this session, and the hash recorded
// must still match the file's current content, before a write proceeds —
// otherwise a concurrent external edit silently loses a change.
type FileReadState struct {
	mu     sync.Mutex
	hashes map[string]string
}

// NewFileReadState returns an empty ledger.
func NewFileReadState() *FileReadState {
	return &FileReadState{hashes: make(map[string]string)}
}

// Canonicalize resolves path (possibly relative to dir) into the key this
// ledger and the write-concurrency scheduler both use, so "./a.go" and
// "a.go" and an absolute path to the same file collide on the same
// lock/hash entry.
func Canonicalize(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(dir, path))
}

// HashContent is the content-addressed staleness token: sha256 hex digest.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Record stores the hash observed for path at read (or post-write) time.
func (s *FileReadState) Record(path string, content []byte) string {
	h := HashContent(content)
	s.mu.Lock()
	s.hashes[path] = h
	s.mu.Unlock()
	return h
}

// WasRead reports whether path has ever been recorded in this session.
func (s *FileReadState) WasRead(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[path]
	return h, ok
}

// Stale reports whether the currently-observed content hash differs from
// the one this ledger has for path — i.e. the file changed since last
// read and a write would clobber that change.
func (s *FileReadState) Stale(path string, currentContent []byte) bool {
	recorded, ok := s.WasRead(path)
	if !ok {
		return true
	}
	return recorded != HashContent(currentContent)
}
