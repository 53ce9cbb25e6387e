package identity

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// ErrInvalidIDToken внешний токен не прошёл проверку.
var ErrInvalidIDToken = errors.New("invalid identity token")

// ExternalIdentity пользователь, подтверждённый внешним провайдером.
type ExternalIdentity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier проверяет Firebase ID токены.
type FirebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier инициализирует Firebase Admin SDK из файла сервисного аккаунта.
func NewFirebaseVerifier(ctx context.Context, credentialsPath, projectID string) (*FirebaseVerifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("identity: firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("identity: firebase credentials file %s: %w", credentialsPath, err)
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("identity: init firebase app %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: firebase auth client %w", err)
	}

	logger.Component("identity").Info("Firebase auth client initialized")
	return &FirebaseVerifier{client: client}, nil
}

// Verify проверяет ID токен и возвращает данные пользователя.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	identity := &ExternalIdentity{UID: token.UID}
	identity.Email, _ = token.Claims["email"].(string)
	identity.DisplayName, _ = token.Claims["name"].(string)
	identity.PhotoURL, _ = token.Claims["picture"].(string)
	if identity.Email == "" {
		return nil, fmt.Errorf("%w: email claim is missing", ErrInvalidIDToken)
	}
	return identity, nil
}
