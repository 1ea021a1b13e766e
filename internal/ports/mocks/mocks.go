// Package mocks holds testify mocks of the ports interfaces
package mocks

import (
	"context"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/stretchr/testify/mock"
)

// APL is a mock of ports.APL
type APL struct {
	mock.Mock
}

func (m *APL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	args := m.Called(ctx, saleorAPIURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthData), args.Error(1)
}

func (m *APL) Set(ctx context.Context, authData *domain.AuthData) error {
	return m.Called(ctx, authData).Error(0)
}

func (m *APL) Delete(ctx context.Context, saleorAPIURL string) error {
	return m.Called(ctx, saleorAPIURL).Error(0)
}

func (m *APL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuthData), args.Error(1)
}

func (m *APL) IsReady(ctx context.Context) ports.ReadyResult {
	return m.Called(ctx).Get(0).(ports.ReadyResult)
}

func (m *APL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	return m.Called(ctx).Get(0).(ports.ConfiguredResult)
}

// SaleorClient is a mock of ports.SaleorClient
type SaleorClient struct {
	mock.Mock
}

func (m *SaleorClient) FetchAppID(ctx context.Context, saleorAPIURL, token string) (string, error) {
	args := m.Called(ctx, saleorAPIURL, token)
	return args.String(0), args.Error(1)
}

func (m *SaleorClient) FetchJWKS(ctx context.Context, saleorAPIURL string) (string, error) {
	args := m.Called(ctx, saleorAPIURL)
	return args.String(0), args.Error(1)
}

// AppConfigRepository is a mock of ports.AppConfigRepository
type AppConfigRepository struct {
	mock.Mock
}

func (m *AppConfigRepository) SaveStripeConfig(ctx context.Context, scope domain.InstallationScope, config *domain.StripeConfig) error {
	return m.Called(ctx, scope, config).Error(0)
}

func (m *AppConfigRepository) GetStripeConfig(ctx context.Context, access domain.StripeConfigAccess) (*domain.StripeConfig, error) {
	args := m.Called(ctx, access)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StripeConfig), args.Error(1)
}

func (m *AppConfigRepository) GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppRootConfig), args.Error(1)
}

func (m *AppConfigRepository) RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error {
	return m.Called(ctx, scope, configID).Error(0)
}

func (m *AppConfigRepository) UpdateMapping(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error {
	return m.Called(ctx, scope, channelID, configID).Error(0)
}

// TransactionRecorder is a mock of ports.TransactionRecorder
type TransactionRecorder struct {
	mock.Mock
}

func (m *TransactionRecorder) RecordTransaction(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	return m.Called(ctx, scope, transaction).Error(0)
}

func (m *TransactionRecorder) GetTransactionByPaymentIntentID(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (*domain.RecordedTransaction, error) {
	args := m.Called(ctx, scope, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordedTransaction), args.Error(1)
}

// CreditsClient is a mock of ports.CreditsClient
type CreditsClient struct {
	mock.Mock
}

func (m *CreditsClient) AddCredits(ctx context.Context, request ports.CreditTopUpRequest) (*ports.CreditTopUpResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.CreditTopUpResponse), args.Error(1)
}

var (
	_ ports.APL                 = (*APL)(nil)
	_ ports.SaleorClient        = (*SaleorClient)(nil)
	_ ports.AppConfigRepository = (*AppConfigRepository)(nil)
	_ ports.TransactionRecorder = (*TransactionRecorder)(nil)
	_ ports.CreditsClient       = (*CreditsClient)(nil)
)

// RequestVerifier is a mock of ports.RequestVerifier
type RequestVerifier struct {
	mock.Mock
}

func (m *RequestVerifier) VerifyToken(token, jwks, appID string) error {
	return m.Called(token, jwks, appID).Error(0)
}

func (m *RequestVerifier) VerifySignature(signature string, payload []byte, jwks string) error {
	return m.Called(signature, payload, jwks).Error(0)
}
