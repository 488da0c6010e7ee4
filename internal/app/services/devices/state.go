package devices

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// oauthState round-trips through the provider's consent page. It is sealed
// with the provider name as additional data so one provider's state cannot
// be replayed against another.
type oauthState struct {
	Verifier string `json:"v,omitempty"`
	Email    string `json:"e"`
	Issued   int64  `json:"t"`
	Nonce    string `json:"n"`
}

func (s *Service) sealState(provider, email, verifier string) (string, error) {
	raw, err := json.Marshal(oauthState{
		Verifier: verifier,
		Email:    user.NormalizeEmail(email),
		Issued:   s.now().Unix(),
		Nonce:    uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	return s.state.SealString(string(raw), []byte(provider))
}

// openState checks a returned state: it must decrypt for provider, be at
// most ten minutes old and belong to email.
func (s *Service) openState(provider, sealed, email string) (oauthState, error) {
	var st oauthState
	if sealed == "" {
		return st, apperrors.RequiredError("state")
	}
	raw, err := s.state.OpenString(sealed, []byte(provider))
	if err != nil {
		return st, apperrors.NewValidationError("state", "invalid authorization state")
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return st, apperrors.NewValidationError("state", "invalid authorization state")
	}
	age := s.now().Sub(time.Unix(st.Issued, 0))
	if age > stateMaxAge || age < -time.Minute {
		return st, apperrors.NewValidationError("state", "authorization state expired")
	}
	if st.Email != user.NormalizeEmail(email) {
		return st, apperrors.NewValidationError("state", "authorization state belongs to another user")
	}
	return st, nil
}
