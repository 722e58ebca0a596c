package controller

import (
	"context"
	"fmt"
	"html"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// HandleLoginSubmit validates the credentials, posts them once and routes the
// outcome: redirect into the content frame, inline notice, or alert.
func (c *Controller) HandleLoginSubmit(ctx context.Context, creds Credentials) {
	defer c.recoverWith("login form submission", func() { c.ui.Page.Alert(MsgGeneric) })

	if creds.Email == "" || creds.Password == "" {
		c.ui.Page.Alert(MsgFillAllFields)
		return
	}

	resp, err := c.backend.Login(ctx, creds)
	if err != nil {
		c.logError("login fetch", err)
		c.ui.Page.Alert(MsgLoginFailed)
		return
	}

	if !resp.Success {
		c.ui.Page.InsertNotice(LoginFormID, Notice{
			Level:       NoticeDanger,
			Text:        c.plainText(resp.Message),
			Dismissible: true,
		})
		return
	}

	if c.ui.ContentFrame == nil || c.ui.ContentModal == nil {
		return
	}
	if c.ui.MailModal != nil {
		c.ui.MailModal.Hide()
	}
	c.ui.ContentFrame.SetSource(resp.RedirectURL)
	c.ui.ContentModal.Show()
}

// HandleLogout ends the session. On success the modals are hidden, the
// configured delay elapses, and the page navigates to the login path. On
// failure the user is alerted and the page stays put.
func (c *Controller) HandleLogout(ctx context.Context) {
	defer c.recoverWith("logout button click", func() { c.ui.Page.Alert(MsgGeneric) })

	if err := c.backend.Logout(ctx); err != nil {
		c.logError("logout", err)
		c.ui.Page.Alert(MsgLogoutFailed)
		return
	}

	c.hideModals()
	if c.cfg.LogoutDelay > 0 {
		if err := c.sleep(ctx, c.cfg.LogoutDelay); err != nil {
			c.logger.Debug("logout delay interrupted", zap.Error(err))
		}
	}
	c.ui.Page.Navigate(c.cfg.LoginPath)
}

// HandleMailAction runs the configured mail strategy. Any failure falls back
// to opening the webmail site in a new tab.
func (c *Controller) HandleMailAction(ctx context.Context) {
	defer c.recoverWith("mail action", c.openWebmailTab)

	switch c.cfg.Mail.Strategy {
	case EmbedModal:
		if c.ui.MailModal == nil {
			c.openWebmailTab()
			return
		}
		if c.ui.ContentModal != nil {
			c.ui.ContentModal.Hide()
		}
		if c.ui.MailFrame != nil && c.ui.MailFrame.Source() != c.cfg.Mail.WebmailURL {
			c.ui.MailFrame.SetSource(c.cfg.Mail.WebmailURL)
		}
		c.ui.MailModal.Show()
		if c.ui.MailFrame != nil {
			c.HandleFrameLoad(ctx, c.ui.MailFrame, c.cfg.Mail.WebmailURL)
		}
	case MailtoLink:
		if err := c.ui.Page.OpenTab(c.cfg.Mail.Mailto.URL()); err != nil {
			c.logError("mailto link", err)
			c.openWebmailTab()
		}
	case NewTabLink:
		c.openWebmailTab()
	}
}

// HandleFrameFailure reacts to a frame that could not show its content by
// opening fallbackURL in a new tab. The webmail modal is closed when its
// frame is the one failing. An empty fallback only logs.
func (c *Controller) HandleFrameFailure(frame Frame, fallbackURL string) {
	defer c.recoverWith("frame failure handler", nil)

	src := ""
	if frame != nil {
		src = frame.Source()
	}
	c.logError("iframe loading", fmt.Errorf("frame could not display %q", src))

	if fallbackURL == "" {
		return
	}
	if err := c.ui.Page.OpenTab(fallbackURL); err != nil {
		c.logError("fallback tab", err)
	}
	if frame != nil && c.ui.MailFrame != nil && frame == c.ui.MailFrame && c.ui.MailModal != nil {
		c.ui.MailModal.Hide()
	}
}

// HandleFrameLoad probes the frame's source after it loads. A blocked
// result is treated as a frame failure. Without a prober this is a no-op.
func (c *Controller) HandleFrameLoad(ctx context.Context, frame Frame, fallbackURL string) {
	defer c.recoverWith("frame access check", func() { c.HandleFrameFailure(frame, fallbackURL) })

	if c.prober == nil || frame == nil || frame.Source() == "" {
		return
	}
	res, err := c.prober.TryEmbed(ctx, frame.Source())
	if err != nil {
		c.logError("frame access check", err)
		c.HandleFrameFailure(frame, fallbackURL)
		return
	}
	if !res.Embeddable() {
		c.logger.Info("frame blocked",
			zap.String("url", res.URL),
			zap.String("reason", res.Reason),
		)
		c.HandleFrameFailure(frame, fallbackURL)
	}
}

// ReportError is the page-level error sink: it logs and never rethrows.
func (c *Controller) ReportError(source string, err error) {
	if err == nil {
		return
	}
	c.logger.Error("global error",
		zap.String("source", source),
		zap.String("message", err.Error()),
		zap.Stack("stack"),
	)
}

// Recover is deferred at the top of front-end goroutines so that a panic
// anywhere below is logged instead of crashing the UI.
func (c *Controller) Recover(source string) {
	if r := recover(); r != nil {
		c.logger.Error("global error",
			zap.String("source", source),
			zap.String("message", fmt.Sprint(r)),
			zap.ByteString("stack", debug.Stack()),
		)
	}
}

func (c *Controller) openWebmailTab() {
	if err := c.ui.Page.OpenTab(c.cfg.Mail.WebmailURL); err != nil {
		c.logError("webmail tab", err)
	}
}

func (c *Controller) hideModals() {
	if c.ui.ContentModal != nil {
		c.ui.ContentModal.Hide()
	}
	if c.ui.MailModal != nil {
		c.ui.MailModal.Hide()
	}
}

// plainText strips markup from server-provided text.
func (c *Controller) plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}

func (c *Controller) logError(where string, err error) {
	c.logger.Error("error in "+where,
		zap.String("context", where),
		zap.Error(err),
	)
}

// recoverWith must be deferred directly.
func (c *Controller) recoverWith(where string, fallback func()) {
	r := recover()
	if r == nil {
		return
	}
	c.logger.Error("error in "+where,
		zap.String("context", where),
		zap.String("message", fmt.Sprint(r)),
		zap.ByteString("stack", debug.Stack()),
	)
	if fallback != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("fallback failed", zap.String("context", where), zap.String("message", fmt.Sprint(r)))
				}
			}()
			fallback()
		}()
	}
}
