package service

import "time"

func (m *SessionManager) SetClock(now func() time.Time) { m.now = now }

func (l *RateLimiter) SetClock(now func() time.Time) { l.now = now }

func (s *TaskService) SetClock(now func() time.Time) { s.now = now }
