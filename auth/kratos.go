package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	ory "github.com/ory/client-go"
	"go.uber.org/zap"
)

// Kratos delegates credential checks to an Ory Kratos public API using the
// native (API client) login flow.
type Kratos struct {
	client *ory.APIClient
	logger *zap.Logger
}

// NewKratos configures an Ory client against the Kratos public API URL.
func NewKratos(publicURL string, logger *zap.Logger) *Kratos {
	conf := ory.NewConfiguration()
	conf.Servers = ory.ServerConfigurations{
		{URL: publicURL},
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Kratos{client: ory.NewAPIClient(conf), logger: logger}
}

func (k *Kratos) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingCredentials
	}

	flow, _, err := k.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("%w: create login flow: %v", ErrProviderUnavailable, err)
	}

	updateBody := ory.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: email,
		Password:   password,
	}
	loginFlowBody := ory.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&updateBody)

	result, resp, err := k.client.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.GetId()).
		UpdateLoginFlowBody(loginFlowBody).
		Execute()
	if err != nil {
		if rejectedLogin(resp, err) {
			k.logger.Debug("kratos rejected login", zap.String("email", email), zap.Error(err))
			return nil, ErrInvalidCredentials
		}
		k.logger.Warn("kratos login failed", zap.Int("status", statusOf(resp)), zap.Error(err))
		return nil, fmt.Errorf("%w: update login flow: %v", ErrProviderUnavailable, err)
	}

	identity := result.Session.GetIdentity()
	id := &Identity{UserID: identity.GetId(), Email: email}
	if traits, ok := identity.Traits.(map[string]interface{}); ok {
		if traitEmail, ok := traits["email"].(string); ok && traitEmail != "" {
			id.Email = traitEmail
		}
	}
	return id, nil
}

// rejectedLogin reports whether Kratos answered 400 with a fresh login flow,
// which is how it signals a wrong identifier or password.
func rejectedLogin(resp *http.Response, err error) bool {
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		return false
	}
	var genericError *ory.GenericOpenAPIError
	if !errors.As(err, &genericError) {
		return false
	}
	switch genericError.Model().(type) {
	case ory.LoginFlow, *ory.LoginFlow:
		return true
	}
	return false
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
