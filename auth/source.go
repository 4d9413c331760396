package auth

import (
	"errors"
	"time"

	"github.com/mdzio/go-lib/conc"
	"github.com/mdzio/go-logging"
	"golang.org/x/sync/singleflight"
)

// delay before the next attempt, if a background refresh failed
const keepFreshRetryDelay = time.Minute

var log = logging.Get("auth")

// Refresher exchanges a refresh token for a new token.
type Refresher interface {
	Refresh(refreshToken string) (*Token, error)
}

// Source yields the current access token from a Store and refreshes it on
// request. Source implements xmlrpc.Credentials.
type Source struct {
	Store     Store
	Refresher Refresher

	group singleflight.Group
}

// Token reads the access token from the store. The store is read on every
// call, so that tokens saved by other processes are picked up.
func (s *Source) Token() (string, error) {
	t, err := s.Store.Load()
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// Refresh exchanges the stored refresh token and saves the new token.
// Concurrent calls share a single exchange.
func (s *Source) Refresh() (string, error) {
	v, err, shared := s.group.Do("refresh", func() (interface{}, error) {
		if s.Refresher == nil {
			return nil, errors.New("Token refresh is not configured")
		}
		old, err := s.Store.Load()
		if err != nil {
			return nil, err
		}
		if old.RefreshToken == "" {
			return nil, errors.New("No refresh token stored")
		}
		log.Debug("Refreshing access token")
		t, err := s.Refresher.Refresh(old.RefreshToken)
		if err != nil {
			return nil, err
		}
		// some servers do not rotate the refresh token
		if t.RefreshToken == "" {
			t.RefreshToken = old.RefreshToken
		}
		if err := s.Store.Save(t); err != nil {
			return nil, err
		}
		log.Infof("Access token refreshed, expires %s", t.Expiry.Format(time.RFC3339))
		return t.AccessToken, nil
	})
	if shared {
		log.Trace("Token refresh shared with concurrent caller")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// KeepFresh starts a background task, which refreshes the token margin
// before it expires. The returned function stops the task.
func (s *Source) KeepFresh(margin time.Duration) (cancel func()) {
	return conc.DaemonFunc(func(ctx conc.Context) {
		log.Debugf("Starting token refresher (margin: %s)", margin)
		for {
			wait := s.refreshDue(margin)
			if ctx.Sleep(wait) != nil {
				log.Debug("Stopping token refresher")
				return
			}
		}
	})
}

// refreshDue refreshes the token, if necessary, and returns the duration until
// the next check.
func (s *Source) refreshDue(margin time.Duration) time.Duration {
	t, err := s.Store.Load()
	if err != nil {
		log.Warningf("Loading of token failed: %v", err)
		return keepFreshRetryDelay
	}
	if t.Expiry.IsZero() {
		return margin
	}
	if !t.Expired(margin) {
		return time.Until(t.Expiry) - margin
	}
	if _, err := s.Refresh(); err != nil {
		log.Errorf("Refreshing of token failed: %v", err)
		return keepFreshRetryDelay
	}
	t, err = s.Store.Load()
	if err != nil || t.Expired(margin) {
		return keepFreshRetryDelay
	}
	return time.Until(t.Expiry) - margin
}
