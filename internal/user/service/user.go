package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mercatokart/storefront/internal/config"
	inErrors "github.com/mercatokart/storefront/internal/errors"
	"github.com/mercatokart/storefront/internal/log"
	"github.com/mercatokart/storefront/internal/repository"
	"github.com/mercatokart/storefront/internal/token"
	"github.com/mercatokart/storefront/internal/user/otel"
	"github.com/mercatokart/storefront/user/pkg/request"
	"github.com/mercatokart/storefront/user/pkg/response"
)

type UserService struct {
	queries *repository.Queries
	config  config.Application
}

func NewUserService(queries *repository.Queries, config config.Application) *UserService {
	return &UserService{queries: queries, config: config}
}

// Register creates a customer account. The username defaults to the
// local part of the email when the request leaves it empty.
func (u *UserService) Register(
	c context.Context,
	param request.Register,
) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserService Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Register").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "checking email").Logger()
	logger.Info().Msg("checking email is unregistered")
	_, err := u.queries.FindUserByEmail(c, param.Email)
	if err == nil {
		err = inErrors.ErrEmailTaken
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("failed checking email with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Msg("email is unregistered")

	logger = logger.With().Str(log.KeyProcess, "hashing password").Logger()
	logger.Info().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed hashing password with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Msg("hashed password")

	username := param.Username
	if username == "" {
		username, _, _ = strings.Cut(param.Email, "@")
	}

	logger = logger.With().Str(log.KeyProcess, "inserting user").Logger()
	logger.Info().Msg("inserting user")
	user, err := u.queries.InsertUser(c, repository.InsertUserParams{
		ID:          uuid.New(),
		Email:       param.Email,
		Username:    username,
		Password:    string(hashed),
		FirstName:   param.FirstName,
		LastName:    param.LastName,
		PhoneNumber: param.PhoneNumber,
	})
	if err != nil {
		err = fmt.Errorf("failed inserting user with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger = logger.With().Str(log.KeyUserID, user.ID.String()).Logger()
	logger.Info().Msg("inserted user")

	return response.User{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		CreatedAt:   user.CreatedAt,
	}, nil
}

// Login verifies the credentials and mints a signed login token.
func (u *UserService) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Login").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Info().Msg("finding user by email")
	user, err := u.queries.FindUserByEmail(c, param.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrUserNotFound
		}
		err = fmt.Errorf("failed finding user with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(log.KeyUserID, user.ID.String()).Logger()
	logger.Info().Msg("found user by email")

	logger = logger.With().Str(log.KeyProcess, "verifying password").Logger()
	logger.Info().Msg("verifying password")
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password))
	if err != nil {
		err = inErrors.ErrPasswordMismatch
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("verified password")

	logger = logger.With().Str(log.KeyProcess, "minting token").Logger()
	logger.Info().Msg("minting token")
	signed, err := token.Mint(u.config.SecretKey, user.ID, time.Now())
	if err != nil {
		err = fmt.Errorf("failed minting token with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("minted token")

	return response.Login{UserId: user.ID, Token: signed}, nil
}
