package ptt

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/pttstar/internal/domain"
)

func (m *Manager) startTransmit(ctx context.Context) error {
	s := m.sess
	if s == nil || m.State().Phase != PhaseConnected {
		return ErrNotConnected
	}
	if m.tx != nil {
		return ErrAlreadyTransmitting
	}

	stream, err := m.deps.Capture.Open(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("capture open failed")
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	var attached []webrtc.TrackLocal
	for _, t := range stream.Tracks() {
		if err := s.pc.AttachTrack(t); err != nil {
			for _, a := range attached {
				_ = s.pc.DetachTrack(a)
			}
			_ = stream.Close()
			return fmt.Errorf("attach track: %w", err)
		}
		attached = append(attached, t)
	}
	m.tx = stream
	m.update(func(st *State) { st.Transmitting = true })
	s.logger.Info().Int("tracks", len(attached)).Msg("transmit started")

	m.reportActivity(s)
	return nil
}

func (m *Manager) stopTransmit() {
	stream := m.tx
	if stream == nil {
		return
	}
	m.tx = nil
	if s := m.sess; s != nil && s.pc != nil {
		for _, t := range stream.Tracks() {
			if err := s.pc.DetachTrack(t); err != nil {
				s.logger.Debug().Err(err).Msg("detach track")
			}
		}
	}
	if err := stream.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("capture close failed")
	}
	m.update(func(st *State) { st.Transmitting = false })
	m.logger.Info().Msg("transmit stopped")
}

// activityFor resolves what the directory is told about a key-up.
func activityFor(cfg domain.ConnectionConfig, p domain.Profile, at time.Time) domain.Activity {
	id := domain.ConfiguredNumericID(cfg)
	if id == nil && p.NumericID != 0 {
		v := p.NumericID
		id = &v
	}
	return domain.Activity{
		Callsign:         p.Callsign,
		Network:          domain.Network(cfg),
		Talkgroup:        domain.Talkgroup(cfg),
		NumericID:        id,
		OperatorName:     p.OperatorName,
		OperatorLocation: p.OperatorLocation,
		At:               at,
	}
}

func (m *Manager) reportActivity(s *session) {
	if m.deps.Reporter == nil {
		return
	}
	var p domain.Profile
	if m.deps.Profile != nil {
		p = m.deps.Profile()
	}
	a := activityFor(s.cfg, p, time.Now().UTC())
	reporter := m.deps.Reporter
	logger := s.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), activityTimeout)
		defer cancel()
		if err := reporter.ReportActivity(ctx, a); err != nil {
			logger.Warn().Err(err).Msg("activity report failed")
			return
		}
		logger.Debug().Str("callsign", a.Callsign).Msg("activity reported")
	}()
}
