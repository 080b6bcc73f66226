package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/provider/truelayer"
	"github.com/ivolkov/moneyflow/internal/store"
)

// ConnectionRefreshError means a token refresh failed; the connection was
// moved to the error status and data sync must not proceed.
type ConnectionRefreshError struct {
	ConnectionID string
	Err          error
}

func (e *ConnectionRefreshError) Error() string {
	return fmt.Sprintf("refreshing connection %s: %v", e.ConnectionID, e.Err)
}

func (e *ConnectionRefreshError) Unwrap() error { return e.Err }

// UpsertConnection stores the outcome of an OAuth exchange. Re-authenticating
// an institution the user already connected updates the existing record in
// place, keeping the (user, provider, institution) tuple unique.
func (s *Service) UpsertConnection(ctx context.Context, userID string, tok truelayer.TokenResult, info *truelayer.InstitutionInfo) (*domain.Connection, error) {
	now := s.now()

	conn, err := s.store.Connections.FindByInstitution(ctx, userID, ProviderName, info.ProviderID)
	switch {
	case err == nil:
		s.applyToken(conn, tok)
		conn.LastSynced = now
		conn.Metadata = info.Raw
		conn.Touch(now)
		if err := s.store.Connections.Update(ctx, conn); err != nil {
			return nil, fmt.Errorf("UpsertConnection: %w", err)
		}
		return conn, nil

	case errors.Is(err, store.ErrNotFound):
		conn = &domain.Connection{
			ID:              uuid.New().String(),
			UserID:          userID,
			Provider:        ProviderName,
			InstitutionID:   info.ProviderID,
			InstitutionName: info.DisplayName,
			Status:          domain.ConnectionActive,
			ConsentID:       tok.ConsentID,
			LastSynced:      now,
			Metadata:        info.Raw,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		s.applyToken(conn, tok)

		err := s.store.Connections.Insert(ctx, conn)
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent callback for the same
			// institution; fold into the row that won.
			return s.UpsertConnection(ctx, userID, tok, info)
		}
		if err != nil {
			return nil, fmt.Errorf("UpsertConnection: %w", err)
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("UpsertConnection: %w", err)
	}
}

// applyToken writes a token grant onto the connection. Expiry is stored
// absolutely, as computed at grant time; it is never recomputed later.
func (s *Service) applyToken(conn *domain.Connection, tok truelayer.TokenResult) {
	conn.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		conn.RefreshToken = tok.RefreshToken
	}
	conn.ExpiresAt = tok.ExpiresAt
	conn.Status = domain.ConnectionActive
	if tok.ConsentID != "" {
		conn.ConsentID = tok.ConsentID
	}
}

// EnsureFreshToken returns a usable access token for the connection,
// refreshing it first when the stored one has expired. On refresh failure
// the connection moves to the expired or error status and a
// ConnectionRefreshError is returned; callers must not proceed to data
// sync. Token state on the shared connection is only read and written
// under the per-connection refresh lock.
func (s *Service) EnsureFreshToken(ctx context.Context, conn *domain.Connection) (string, error) {
	s.refreshLocks.Lock(conn.ID)
	defer s.refreshLocks.Unlock(conn.ID)

	if s.now().Before(conn.ExpiresAt) {
		return conn.AccessToken, nil
	}
	if err := s.refreshConnection(ctx, conn); err != nil {
		return "", err
	}
	return conn.AccessToken, nil
}

// renewToken retires staleToken after a 401 and returns a fresh access
// token. The refresh lock makes renewal single-flight: when sibling
// account goroutines get rejected at the same time, one performs the
// refresh grant and the rest reuse its result. A second racing grant
// would come back as invalid_grant under refresh-token rotation and
// wrongly flip the connection into a failed state mid-sync.
func (s *Service) renewToken(ctx context.Context, conn *domain.Connection, staleToken string) (string, error) {
	s.refreshLocks.Lock(conn.ID)
	defer s.refreshLocks.Unlock(conn.ID)

	if conn.Status != domain.ConnectionActive {
		// A sibling's refresh already failed; don't burn another grant.
		return "", &ConnectionRefreshError{ConnectionID: conn.ID, Err: fmt.Errorf("connection status is %s", conn.Status)}
	}
	if conn.AccessToken != staleToken {
		// A sibling renewed the token while we waited for the lock.
		return conn.AccessToken, nil
	}
	if err := s.refreshConnection(ctx, conn); err != nil {
		return "", err
	}
	return conn.AccessToken, nil
}

// refreshConnection performs one refresh grant and persists the result,
// regardless of the stored token's remaining lifetime. Used both for
// expiry-driven refreshes and for the single retry after a 401. Callers
// hold the per-connection refresh lock.
func (s *Service) refreshConnection(ctx context.Context, conn *domain.Connection) error {
	tok, err := s.provider.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		// An auth-level rejection means the grant itself is gone and only
		// a new OAuth flow can revive the connection; anything else is a
		// transient failure.
		conn.Status = domain.ConnectionError
		var authErr *truelayer.AuthError
		if errors.As(err, &authErr) {
			conn.Status = domain.ConnectionExpired
		}
		conn.Touch(s.now())
		if updateErr := s.store.Connections.Update(ctx, conn); updateErr != nil {
			s.log.Error().
				Err(updateErr).
				Str("connection_id", conn.ID).
				Msg("Failed to persist error status after refresh failure")
		}
		return &ConnectionRefreshError{ConnectionID: conn.ID, Err: err}
	}

	s.applyToken(conn, tok)
	conn.Touch(s.now())
	if err := s.store.Connections.Update(ctx, conn); err != nil {
		return fmt.Errorf("refreshConnection: persisting refreshed token: %w", err)
	}

	s.log.Info().
		Str("connection_id", conn.ID).
		Time("expires_at", conn.ExpiresAt).
		Msg("Access token refreshed")

	return nil
}

// withAuthRetry runs a data call and, when it fails with a 401, renews
// the token and retries exactly once. Any other failure propagates as is.
func (s *Service) withAuthRetry(ctx context.Context, conn *domain.Connection, call func(accessToken string) error) error {
	token, err := s.EnsureFreshToken(ctx, conn)
	if err != nil {
		return err
	}

	err = call(token)
	var dataErr *truelayer.DataError
	if errors.As(err, &dataErr) && dataErr.Unauthorized() {
		s.log.Warn().
			Str("connection_id", conn.ID).
			Msg("Data call rejected with 401, refreshing token and retrying once")
		fresh, refreshErr := s.renewToken(ctx, conn, token)
		if refreshErr != nil {
			return refreshErr
		}
		return call(fresh)
	}
	return err
}
