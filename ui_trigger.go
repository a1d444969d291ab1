package goSession

import (
	"fmt"

	"github.com/MrEthical07/goSession/gate"
	"github.com/rs/zerolog"
)

// uiTrigger presents host UI flows under a gate blocker.
type uiTrigger struct {
	presenter  Presenter
	dispatcher UIDispatcher
	gate       gate.Registry
	logger     zerolog.Logger
	metrics    *Metrics
}

func (u *uiTrigger) showLogin(mode LoginMode) error {
	if err := u.requirePresenter("login flow"); err != nil {
		return err
	}

	blocker := u.gate.Add(gate.KindAuthentication)
	u.dispatcher.Dispatch(func() {
		u.presenter.TriggerLoginFlow(mode, blocker.Complete)
	})
	return nil
}

func (u *uiTrigger) renewSSO(userID string) error {
	if err := u.requirePresenter("renew sso"); err != nil {
		return err
	}

	blocker := u.gate.Add(gate.KindRenewAuthentication)
	u.dispatcher.Dispatch(func() {
		u.presenter.TriggerRenewSSO(userID, blocker.Complete)
	})
	return nil
}

func (u *uiTrigger) requirePresenter(flow string) error {
	if u.presenter != nil {
		return nil
	}
	u.metrics.Inc(MetricWiringFailure)
	u.logger.Error().Str("flow", flow).Msg("no presenter installed")
	return fmt.Errorf("%w: presenter required for %s", ErrWiring, flow)
}
