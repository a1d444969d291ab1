package main

import (
	"context"

	goSession "github.com/MrEthical07/goSession"
	"github.com/rs/zerolog"
)

// autoPresenter stands in for the host UI. Renew requests are answered by
// completing SSO again, as a user signing back in would.
type autoPresenter struct {
	logger  zerolog.Logger
	manager func() *goSession.Manager
}

func (p *autoPresenter) TriggerLoginFlow(mode goSession.LoginMode, done func()) {
	p.logger.Info().Stringer("mode", mode).Msg("login flow presented")
	go func() {
		defer done()
		if _, err := p.manager().StartSSO(context.Background()); err != nil {
			p.logger.Warn().Err(err).Msg("sso start failed")
			return
		}
		if _, err := p.manager().CompleteSSO(context.Background(), "sim-code-b"); err != nil {
			p.logger.Warn().Err(err).Msg("sso complete failed")
		}
	}()
}

func (p *autoPresenter) TriggerRenewSSO(userID string, done func()) {
	p.logger.Info().Str("user", userID).Msg("renew sso presented")
	go func() {
		defer done()
		if _, err := p.manager().CompleteSSO(context.Background(), "sim-code-b"); err != nil {
			p.logger.Warn().Err(err).Msg("sso renew failed")
		}
	}()
}
