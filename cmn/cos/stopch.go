// Package cos: StopCh, following the closed-channel idiom transport's
// stream collector uses for signaling goroutine shutdown exactly once
// regardless of how many times Close is called.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "sync"

type StopCh struct {
	once sync.Once
	ch   chan struct{}
}

func (s *StopCh) Init() { s.ch = make(chan struct{}) }

func (s *StopCh) Listen() <-chan struct{} { return s.ch }

func (s *StopCh) Close() {
	s.once.Do(func() { close(s.ch) })
}

func (s *StopCh) IsClosed() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
