package awsintegration

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/planter-dashboard/internal/errors"
	"github.com/jrsteele09/planter-dashboard/internal/validation"
	"github.com/jrsteele09/planter-dashboard/users"
)

type API interface {
	GetUser(ctx context.Context, accessToken, userID string) (*users.User, error)
	SetupAWS(ctx context.Context, accessToken, userID, accountID string) (string, error)
}

type Service struct {
	api API
	log zerolog.Logger
}

func NewService(api API) *Service {
	return &Service{
		api: api,
		log: log.With().Str("component", "aws_integration").Logger(),
	}
}

// ValidateAccountID accepts exactly twelve ASCII digits.
func ValidateAccountID(accountID string) error {
	return validation.Default().Var("accountId", accountID, "required,awsaccountid")
}

// Resolve fetches the user and derives the integration status. It never fails:
// fetch errors are reflected in the status.
func (s *Service) Resolve(ctx context.Context, accessToken, userID string) Integration {
	if userID == "" {
		return FromUser(false, nil, nil)
	}
	user, err := s.api.GetUser(ctx, accessToken, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch AWS status")
	}
	return FromUser(true, user, err)
}

// Setup validates accountID, asks the backend for the CloudFormation link and parses it.
func (s *Service) Setup(ctx context.Context, accessToken, userID, accountID string) (*StackLaunch, error) {
	accountID = strings.TrimSpace(accountID)
	if err := ValidateAccountID(accountID); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	link, err := s.api.SetupAWS(ctx, accessToken, userID, accountID)
	if err != nil {
		s.log.Err(err).Str("user_id", userID).Msg("AWS setup request failed")
		return nil, apperrors.Wrapf(err, "aws setup")
	}

	launch, err := ParseCloudFormationURL(link)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("stack", launch.StackName).Msg("AWS setup link issued")
	return launch, nil
}
