package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/abduss/cloudbin/internal/config"
	"github.com/abduss/cloudbin/internal/events"
	"github.com/abduss/cloudbin/internal/record"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt limit
	issuer            = "cloudbin"
)

var storageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// Service encapsulates authentication use cases.
type Service struct {
	store     record.Store
	publisher events.Publisher
	cfg       config.AuthConfig
	log       *zap.Logger
	nowFunc   func() time.Time
	// dummyHash is compared for unknown storage ids so they cost as much as a
	// wrong password. Same cost as real hashes.
	dummyHash []byte
}

// NewService creates a Service with dependencies.
func NewService(store record.Store, publisher events.Publisher, cfg config.AuthConfig, log *zap.Logger) *Service {
	dummy, err := bcrypt.GenerateFromPassword([]byte("cloudbin-timing-guard"), cfg.BcryptCost)
	if err != nil {
		log.Warn("generate timing guard hash", zap.Error(err))
	}
	return &Service{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		nowFunc:   time.Now,
		dummyHash: dummy,
	}
}

// Credentials carries the fields shared by create and login.
type Credentials struct {
	StorageID   string
	Password    string
	Fingerprint string
}

// Create registers a new storage id with an empty root-only storage and opens a session.
func (s *Service) Create(ctx context.Context, in Credentials) (Result, error) {
	storageID := strings.TrimSpace(in.StorageID)
	if !storageIDPattern.MatchString(storageID) {
		return Result{}, ErrInvalidStorageID
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return Result{}, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFunc().UTC()
	user := record.User{
		StorageID:    storageID,
		PasswordHash: string(hash),
		CreatedAt:    now,
		Storage:      record.NewStorage(now),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, record.ErrAlreadyExists) {
			return Result{}, ErrStorageTaken
		}
		return Result{}, fmt.Errorf("create storage: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{Type: events.StorageCreated, StorageID: storageID, At: now}); err != nil {
		s.log.Warn("publish event failed", zap.String("storage_id", storageID), zap.Error(err))
	}

	return s.issue(storageID, now, in.Fingerprint)
}

// Login checks the password against the stored hash and opens a session.
func (s *Service) Login(ctx context.Context, in Credentials) (Result, error) {
	storageID := strings.TrimSpace(in.StorageID)
	if !storageIDPattern.MatchString(storageID) || in.Password == "" || len(in.Password) > maxPasswordLength {
		return Result{}, ErrInvalidCredentials
	}

	user, err := s.store.Get(ctx, storageID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("load storage: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return Result{}, ErrInvalidCredentials
	}

	return s.issue(user.StorageID, user.CreatedAt, in.Fingerprint)
}

// Authenticate validates the token signature, issuer and expiry.
func (s *Service) Authenticate(token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrUnauthorized
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)

	var claims sessionClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Session{}, ErrUnauthorized
	}

	session := Session{
		StorageID:       claims.Subject,
		FingerprintHash: claims.Fingerprint,
		ExpiresAt:       claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}

// Verify authenticates token and checks it was issued to fingerprint.
func (s *Service) Verify(token, fingerprint string) (Session, error) {
	session, err := s.Authenticate(token)
	if err != nil {
		return Session{}, err
	}
	if !session.MatchesFingerprint(fingerprint) {
		return Session{}, ErrUnauthorized
	}
	return session, nil
}

func (s *Service) issue(storageID string, createdAt time.Time, fingerprint string) (Result, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.SessionTTL)

	claims := sessionClaims{
		Fingerprint: hashFingerprint(fingerprint),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   storageID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return Result{}, fmt.Errorf("sign session: %w", err)
	}

	return Result{
		StorageID: storageID,
		CreatedAt: createdAt,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}
