package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/domain"
)

// Log texts for the two ways a login attempt can give up.
const (
	MsgOperatorFailed = "选择运营商失败，请检查配置中的 operator 或 operator_xpath。"
	MsgElementsFailed = "登录元素定位失败，请检查配置中的 XPath。"
)

// Default pauses between form interactions.
const (
	DefaultOperatorSettle = 500 * time.Millisecond
	DefaultFieldPause     = 500 * time.Millisecond
)

// LoginActor fills and submits the gateway login form.
type LoginActor struct {
	portal         domain.Portal
	logger         *zap.Logger
	operatorSettle time.Duration
	fieldPause     time.Duration
}

// LoginOption configures a LoginActor.
type LoginOption func(*LoginActor)

// WithPauses overrides the operator settle delay and the pause after clicking a field.
func WithPauses(operatorSettle, fieldPause time.Duration) LoginOption {
	return func(a *LoginActor) {
		a.operatorSettle = operatorSettle
		a.fieldPause = fieldPause
	}
}

// NewLoginActor creates a login actor for the given portal layout.
func NewLoginActor(portal domain.Portal, logger *zap.Logger, opts ...LoginOption) *LoginActor {
	a := &LoginActor{
		portal:         portal,
		logger:         logger,
		operatorSettle: DefaultOperatorSettle,
		fieldPause:     DefaultFieldPause,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AttemptLogin runs one login attempt and reports whether the form was submitted.
func (a *LoginActor) AttemptLogin(ctx context.Context, b domain.Browser, login config.Login) bool {
	ok, _ := a.AttemptLoginDetailed(ctx, b, login)
	return ok
}

// AttemptLoginDetailed is AttemptLogin plus the step that gave up.
// Submission is not confirmation: the caller must probe again.
func (a *LoginActor) AttemptLoginDetailed(ctx context.Context, b domain.Browser, login config.Login) (bool, domain.LoginFailure) {
	if login.Operator != "" || login.OperatorXPath != "" {
		if err := a.selectOperator(ctx, b, login); err != nil {
			a.logger.Error(MsgOperatorFailed, zap.Error(err))
			return false, domain.LoginFailureOperator
		}
	}

	if err := a.fillAndSubmit(ctx, b, login); err != nil {
		a.logger.Error(MsgElementsFailed, zap.Error(err))
		return false, domain.LoginFailureElements
	}
	return true, domain.LoginFailureNone
}

func (a *LoginActor) selectOperator(ctx context.Context, b domain.Browser, login config.Login) error {
	dropdown, xp, err := FirstMatch(ctx, b, Candidates(login.OperatorXPath, a.portal.OperatorXPaths))
	if err != nil {
		return fmt.Errorf("operator dropdown: %w", err)
	}
	a.logger.Debug("operator dropdown resolved", zap.String("xpath", xp))

	if login.Operator != "" {
		if err := dropdown.SelectByText(ctx, login.Operator); err != nil {
			return fmt.Errorf("select %q: %w", login.Operator, err)
		}
	}
	return pause(ctx, a.operatorSettle)
}

func (a *LoginActor) fillAndSubmit(ctx context.Context, b domain.Browser, login config.Login) error {
	account, _, err := FirstMatch(ctx, b, Candidates(login.AccountXPath, a.portal.AccountXPaths))
	if err != nil {
		return fmt.Errorf("account input: %w", err)
	}
	password, _, err := FirstMatch(ctx, b, Candidates(login.PasswordXPath, a.portal.PasswordXPaths))
	if err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	submit, xp, err := FirstMatch(ctx, b, Candidates(login.SubmitXPath, a.portal.SubmitXPaths))
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}

	if err := a.fill(ctx, account, login.Account); err != nil {
		return fmt.Errorf("account input: %w", err)
	}
	if err := a.fill(ctx, password, login.Password); err != nil {
		return fmt.Errorf("password input: %w", err)
	}

	// Scripted click reaches inputs hidden behind overlays.
	if err := submit.Activate(ctx); err != nil {
		return fmt.Errorf("activate %s: %w", xp, err)
	}
	return nil
}

func (a *LoginActor) fill(ctx context.Context, el domain.Element, value string) error {
	if err := el.Click(ctx); err != nil {
		return err
	}
	if err := pause(ctx, a.fieldPause); err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return err
	}
	return el.Type(ctx, value)
}
