// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// compile-time check
var _ IdentityProvider = (*FirebaseProvider)(nil)

// FirebaseOptions configures the Identity Toolkit client.
type FirebaseOptions struct {
	APIKey     string // web API key of the Firebase project; required
	Endpoint   string // override for emulators and tests
	RequestURI string // continue URI sent with IdP assertions
	HTTPClient *http.Client
}

// FirebaseProvider talks to the Firebase Identity Toolkit REST API.
type FirebaseProvider struct {
	svc        *identitytoolkit.Service
	requestURI string
	now        func() time.Time
}

// NewFirebaseProvider creates a provider authenticated with an API key.
func NewFirebaseProvider(ctx context.Context, opts FirebaseOptions) (*FirebaseProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("firebase: api key is required")
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	svc, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: create identity toolkit client: %w", err)
	}

	requestURI := opts.RequestURI
	if requestURI == "" {
		requestURI = "http://localhost"
	}
	return &FirebaseProvider{svc: svc, requestURI: requestURI, now: time.Now}, nil
}

// SignUp creates an email/password account.
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	resp, err := p.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return &Credential{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		ProviderID:   "password",
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

// SignIn verifies an email/password pair.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	resp, err := p.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return &Credential{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		ProviderID:   "password",
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

// SignInWithGoogle exchanges a Google ID token via verifyAssertion.
func (p *FirebaseProvider) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Credential, error) {
	if strings.TrimSpace(googleIDToken) == "" {
		return nil, &ProviderError{Code: CodeInvalidCredential, Message: "Google sign-in token is missing."}
	}
	body := url.Values{"id_token": {googleIDToken}, "providerId": {"google.com"}}.Encode()
	resp, err := p.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body,
		RequestUri:        p.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	if resp.ErrorMessage != "" {
		return nil, mapMessage(resp.ErrorMessage, nil)
	}
	return &Credential{
		UserID:       resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		ProviderID:   "google.com",
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.expiry(resp.ExpiresIn),
	}, nil
}

func (p *FirebaseProvider) expiry(seconds int64) time.Time {
	if seconds <= 0 {
		seconds = 3600
	}
	return p.now().Add(time.Duration(seconds) * time.Second)
}

// mapError turns an Identity Toolkit failure into a *ProviderError.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" && len(gerr.Errors) > 0 {
			msg = gerr.Errors[0].Message
		}
		if gerr.Code == http.StatusTooManyRequests {
			msg = "TOO_MANY_ATTEMPTS_TRY_LATER"
		}
		return mapMessage(msg, err)
	}
	return &ProviderError{Code: CodeInternalError, Message: "Authentication service is unavailable.", Err: err}
}

// mapMessage maps Identity Toolkit messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func mapMessage(msg string, cause error) *ProviderError {
	reason, _, _ := strings.Cut(msg, ":")
	reason = strings.TrimSpace(reason)
	if cause == nil {
		cause = errors.New(msg)
	}

	perr := &ProviderError{Err: cause}
	switch reason {
	case "EMAIL_EXISTS":
		perr.Code, perr.Message = CodeEmailInUse, "An account with this email already exists."
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_IDP_RESPONSE", "MISSING_PASSWORD", "INVALID_ID_TOKEN":
		perr.Code, perr.Message = CodeInvalidCredential, "Invalid email or password."
	case "EMAIL_NOT_FOUND":
		perr.Code, perr.Message = CodeUserNotFound, "No account found with this email."
	case "USER_DISABLED":
		perr.Code, perr.Message = CodeUserDisabled, "This account has been disabled."
	case "WEAK_PASSWORD":
		perr.Code, perr.Message = CodeWeakPassword, "Password should be at least 6 characters."
	case "INVALID_EMAIL", "MISSING_EMAIL":
		perr.Code, perr.Message = CodeInvalidEmail, "Please enter a valid email address."
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		perr.Code, perr.Message = CodeTooManyRequests, "Too many attempts. Please try again later."
	case "OPERATION_NOT_ALLOWED":
		perr.Code, perr.Message = CodeProviderNotEnabled, "This sign-in method is not enabled."
	default:
		perr.Code, perr.Message = CodeInternalError, "Authentication failed. Please try again."
	}
	return perr
}
