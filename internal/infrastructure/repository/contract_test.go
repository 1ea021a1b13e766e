package repository

import (
	"context"
	"testing"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/encryption"
	"saleor-apps-core/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScope = domain.InstallationScope{
	SaleorAPIURL: "https://shop.saleor.cloud/graphql/",
	AppID:        "QXBwOjE=",
}

func newTestEncryptor(t *testing.T, secret string) ports.EncryptionService {
	t.Helper()
	enc, err := encryption.NewService(secret)
	require.NoError(t, err)
	return enc
}

func sampleConfig(id string) *domain.StripeConfig {
	return &domain.StripeConfig{
		ID:             id,
		Name:           "Config " + id,
		PublishableKey: "pk_test_" + id,
		RestrictedKey:  "rk_test_" + id,
		WebhookID:      "we_" + id,
		WebhookSecret:  "whsec_" + id,
	}
}

func strPtr(s string) *string {
	return &s
}

// testAppConfigContract runs the shared behaviour. newRepo must return
// repositories over the same storage for every call.
func testAppConfigContract(t *testing.T, newRepo func(ports.EncryptionService) ports.AppConfigRepository) {
	t.Helper()
	ctx := context.Background()
	repo := newRepo(newTestEncryptor(t, "secret"))

	t.Run("unknown config is nil", func(t *testing.T) {
		got, err := repo.GetStripeConfig(ctx, domain.ByConfigID(testScope, "missing"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save then get decrypts secrets", func(t *testing.T) {
		require.NoError(t, repo.SaveStripeConfig(ctx, testScope, sampleConfig("c1")))

		got, err := repo.GetStripeConfig(ctx, domain.ByConfigID(testScope, "c1"))
		require.NoError(t, err)
		assert.Equal(t, sampleConfig("c1"), got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		updated := sampleConfig("c1")
		updated.Name = "Renamed"
		require.NoError(t, repo.SaveStripeConfig(ctx, testScope, updated))

		got, err := repo.GetStripeConfig(ctx, domain.ByConfigID(testScope, "c1"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Renamed", got.Name)
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		bad := sampleConfig("c9")
		bad.RestrictedKey = "sk_live_oops"
		err := repo.SaveStripeConfig(ctx, testScope, bad)
		assert.ErrorIs(t, err, domain.ErrFailedSavingConfig)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unmapped channel is nil", func(t *testing.T) {
		got, err := repo.GetStripeConfig(ctx, domain.ByChannelID(testScope, "Q2hhbm5lbDox"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mapped channel resolves", func(t *testing.T) {
		require.NoError(t, repo.UpdateMapping(ctx, testScope, "Q2hhbm5lbDox", strPtr("c1")))

		got, err := repo.GetStripeConfig(ctx, domain.ByChannelID(testScope, "Q2hhbm5lbDox"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "c1", got.ID)
	})

	t.Run("root config", func(t *testing.T) {
		require.NoError(t, repo.SaveStripeConfig(ctx, testScope, sampleConfig("c2")))
		require.NoError(t, repo.UpdateMapping(ctx, testScope, "Q2hhbm5lbDoy", strPtr("c2")))

		root, err := repo.GetRootConfig(ctx, testScope)
		require.NoError(t, err)
		assert.Len(t, root.StripeConfigsByID, 2)
		assert.Equal(t, map[string]string{"Q2hhbm5lbDox": "c1", "Q2hhbm5lbDoy": "c2"}, root.ChannelConfigMapping)
		assert.Equal(t, "rk_test_c2", root.GetConfigForChannel("Q2hhbm5lbDoy").RestrictedKey)
	})

	t.Run("unassigned channel is nil", func(t *testing.T) {
		require.NoError(t, repo.UpdateMapping(ctx, testScope, "Q2hhbm5lbDoy", nil))

		got, err := repo.GetStripeConfig(ctx, domain.ByChannelID(testScope, "Q2hhbm5lbDoy"))
		require.NoError(t, err)
		assert.Nil(t, got)

		root, err := repo.GetRootConfig(ctx, testScope)
		require.NoError(t, err)
		assert.NotContains(t, root.ChannelConfigMapping, "Q2hhbm5lbDoy")
	})

	t.Run("mapping to removed config is nil", func(t *testing.T) {
		require.NoError(t, repo.RemoveConfig(ctx, testScope, "c1"))
		require.NoError(t, repo.RemoveConfig(ctx, testScope, "c1"))

		got, err := repo.GetStripeConfig(ctx, domain.ByChannelID(testScope, "Q2hhbm5lbDox"))
		require.NoError(t, err)
		assert.Nil(t, got)

		root, err := repo.GetRootConfig(ctx, testScope)
		require.NoError(t, err)
		assert.Nil(t, root.GetConfigForChannel("Q2hhbm5lbDox"))
	})

	t.Run("installations are isolated", func(t *testing.T) {
		other := domain.InstallationScope{SaleorAPIURL: testScope.SaleorAPIURL, AppID: "QXBwOjI="}

		got, err := repo.GetStripeConfig(ctx, domain.ByConfigID(other, "c2"))
		require.NoError(t, err)
		assert.Nil(t, got)

		root, err := repo.GetRootConfig(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, root.StripeConfigsByID)
		assert.Empty(t, root.ChannelConfigMapping)
	})

	t.Run("wrong key is a decryption failure", func(t *testing.T) {
		wrongKey := newRepo(newTestEncryptor(t, "another secret"))

		_, err := wrongKey.GetStripeConfig(ctx, domain.ByConfigID(testScope, "c2"))
		assert.ErrorIs(t, err, domain.ErrFailedFetchingConfig)
		assert.ErrorIs(t, err, domain.ErrDecryption)

		_, err = wrongKey.GetRootConfig(ctx, testScope)
		assert.ErrorIs(t, err, domain.ErrDecryption)
	})

	t.Run("access must name exactly one key", func(t *testing.T) {
		access := domain.StripeConfigAccess{InstallationScope: testScope, ConfigID: "c2", ChannelID: "ch"}
		_, err := repo.GetStripeConfig(ctx, access)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func sampleTransaction(id string) *domain.RecordedTransaction {
	return &domain.RecordedTransaction{
		PaymentIntentID:         id,
		SaleorTransactionID:     "VHJhbnNhY3Rpb25JdGVtOjE=",
		SaleorTransactionFlow:   domain.TransactionFlowAuthorize,
		ResolvedTransactionFlow: domain.TransactionFlowCharge,
		SelectedPaymentMethod:   "card",
	}
}

func testTransactionRecorderContract(t *testing.T, recorder ports.TransactionRecorder) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing is distinct from failure", func(t *testing.T) {
		_, err := recorder.GetTransactionByPaymentIntentID(ctx, testScope, "pi_missing")
		assert.ErrorIs(t, err, domain.ErrTransactionMissing)
		assert.NotErrorIs(t, err, domain.ErrFailedFetchingTransaction)
	})

	t.Run("record then get", func(t *testing.T) {
		require.NoError(t, recorder.RecordTransaction(ctx, testScope, sampleTransaction("pi_1")))

		got, err := recorder.GetTransactionByPaymentIntentID(ctx, testScope, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, sampleTransaction("pi_1"), got)
	})

	t.Run("recording again replaces", func(t *testing.T) {
		again := sampleTransaction("pi_1")
		again.SelectedPaymentMethod = "ideal"
		require.NoError(t, recorder.RecordTransaction(ctx, testScope, again))

		got, err := recorder.GetTransactionByPaymentIntentID(ctx, testScope, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, "ideal", got.SelectedPaymentMethod)
	})

	t.Run("installations are isolated", func(t *testing.T) {
		other := domain.InstallationScope{SaleorAPIURL: "https://other.saleor.cloud/graphql/", AppID: testScope.AppID}
		_, err := recorder.GetTransactionByPaymentIntentID(ctx, other, "pi_1")
		assert.ErrorIs(t, err, domain.ErrTransactionMissing)
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		bad := sampleTransaction("pi_2")
		bad.ResolvedTransactionFlow = "REFUND"
		err := recorder.RecordTransaction(ctx, testScope, bad)
		assert.ErrorIs(t, err, domain.ErrFailedWritingTransaction)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
