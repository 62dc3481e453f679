package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/domain"
)

// Status texts reported when the page carries no usable message.
const (
	MsgNotLoggedIn = "未登录，尝试登录。"
	MsgParseFailed = "页面状态解析失败。"
)

// Prober classifies the gateway page as logged in or not.
type Prober struct {
	portal domain.Portal
	logger *zap.Logger
}

// NewProber creates a prober for the given portal layout.
func NewProber(portal domain.Portal, logger *zap.Logger) *Prober {
	return &Prober{portal: portal, logger: logger}
}

// Probe loads host and reads the page state.
//
// An unreachable host leaves the browser on its error page, which carries
// neither element, so it classifies as logged out. Only cancellation and a
// failure reading the success banner other than "not found" are returned
// as errors. Problems reading the message element map to MsgNotLoggedIn or
// MsgParseFailed.
func (p *Prober) Probe(ctx context.Context, b domain.Browser, host string) (domain.ProbeResult, error) {
	if err := b.Navigate(ctx, host); err != nil {
		if ctx.Err() != nil {
			return domain.ProbeResult{}, ctx.Err()
		}
		p.logger.Warn("网关页面无法访问", zap.String("host", host), zap.Error(err))
	}

	banner, err := b.Find(ctx, p.portal.SuccessXPath)
	switch {
	case err == nil:
		text, err := banner.Text(ctx)
		if err != nil {
			return domain.ProbeResult{}, fmt.Errorf("read success banner: %w", err)
		}
		if strings.TrimSpace(text) == p.portal.SuccessPhrase {
			return domain.ProbeResult{LoggedIn: true, Message: p.portal.SuccessPhrase}, nil
		}
	case errors.Is(err, domain.ErrElementNotFound):
	default:
		if ctx.Err() != nil {
			return domain.ProbeResult{}, ctx.Err()
		}
		return domain.ProbeResult{}, fmt.Errorf("find success banner: %w", err)
	}

	return domain.ProbeResult{Message: p.readMessage(ctx, b)}, nil
}

func (p *Prober) readMessage(ctx context.Context, b domain.Browser) string {
	el, err := b.Find(ctx, p.portal.MessageXPath)
	if errors.Is(err, domain.ErrElementNotFound) {
		return MsgNotLoggedIn
	}
	if err == nil {
		var text string
		if text, err = el.Text(ctx); err == nil {
			return text
		}
	}
	p.logger.Error(MsgParseFailed, zap.Error(err))
	return MsgParseFailed
}
