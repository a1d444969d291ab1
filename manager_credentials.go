package goSession

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/credential"
)

// UpdateNetworkCredentials folds server response headers into the stored
// credentials. Credentials are persisted only when a non-empty bearer or
// secondary token differs from the stored one. A device guid that differs
// from the stored guid is reported but never adopted.
func (m *Manager) UpdateNetworkCredentials(ctx context.Context, h http.Header) error {
	var err error
	if doErr := m.do(ctx, func() {
		err = m.updateNetworkCredentialsLocked(ctx, h)
	}); doErr != nil {
		return doErr
	}
	return err
}

func (m *Manager) updateNetworkCredentialsLocked(ctx context.Context, h http.Header) error {
	res, err := m.creds.ApplyHeaders(context.WithoutCancel(ctx), h, m.config.Headers)

	if res.GUIDMismatch {
		m.metrics.Inc(MetricGUIDMismatch)
		m.logger.Warn().
			Str("stored", res.Credentials.DeviceGUID).
			Str("server", res.ServerGUID).
			Msg("server device guid differs from stored guid")
		m.emitLocked(SessionEvent{
			EventType: EventGUIDMismatch,
			Metadata:  map[string]string{"server_guid": res.ServerGUID},
		})
	}
	if err != nil {
		m.logger.Error().Err(err).Msg("persist credentials failed")
		return err
	}
	if !res.Changed {
		return nil
	}

	m.metrics.Inc(MetricCredentialsReplaced)
	m.emitLocked(SessionEvent{EventType: EventCredentialsChanged, Success: true})

	info, err := credential.InspectBearer(res.Credentials.BearerToken)
	switch {
	case errors.Is(err, credential.ErrNoBearer):
	case err != nil:
		m.logger.Debug().Err(err).Msg("bearer token is not a jwt")
	case info.Expired(m.clock.Now()):
		m.logger.Warn().
			Str("subject", info.Subject).
			Time("expires_at", info.ExpiresAt).
			Msg("server issued an expired bearer token")
	}
	return nil
}
