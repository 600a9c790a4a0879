// Copyright 2024 The QCGC Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collector

// grayStack is a LIFO of pending-to-trace objects. The collector keeps
// one general-purpose instance plus one per arena, so that the mark
// engine can drain each arena's outstanding work separately.
type grayStack struct {
	items []ObjectRef
}

func (s *grayStack) push(obj ObjectRef) {
	s.items = append(s.items, obj)
}

func (s *grayStack) pop() (ObjectRef, bool) {
	n := len(s.items)
	if n == 0 {
		return 0, false
	}
	obj := s.items[n-1]
	s.items[n-1] = 0
	s.items = s.items[:n-1]
	return obj, true
}

func (s *grayStack) len() int {
	return len(s.items)
}
