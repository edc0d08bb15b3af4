package automation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

// Audit opens bot.sannysoft.com so the fingerprint the cloud browser presents
// can be inspected on the saved screenshot.
type Audit struct {
	shots  ScreenshotSink
	timing Timing
	logger logrus.FieldLogger

	URL string
}

func NewAudit(shots ScreenshotSink, timing Timing, logger logrus.FieldLogger) *Audit {
	return &Audit{shots: shots, timing: timing, logger: logger.WithField("flow", "audit"), URL: AuditURL}
}

func (a *Audit) Name() string { return "audit" }

func (a *Audit) Run(ctx context.Context, d browser.Driver) (*types.Result, error) {
	p := &page{d: d, shots: a.shots, timing: a.timing, logger: a.logger}

	if err := p.open(ctx, a.URL); err != nil {
		return &p.result, err
	}
	if err := p.waitFor(ctx, AuditReady); err != nil {
		return &p.result, err
	}
	// The audit table fills in from scripts after load.
	if err := p.sleep(ctx, a.timing.SubmitDelay); err != nil {
		return &p.result, err
	}
	if err := p.capture(ctx, "01_fingerprint_audit"); err != nil {
		return &p.result, err
	}

	res, err := p.finish(ctx)
	if err != nil {
		return res, err
	}
	a.logger.Infof("Fingerprint audit page: %s (%s)", res.Title, res.FinalURL)

	return res, nil
}
