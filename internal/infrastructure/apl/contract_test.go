package apl

import (
	"context"
	"testing"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAuthData(url string) *domain.AuthData {
	return &domain.AuthData{
		SaleorAPIURL: url,
		Token:        "token-for-" + url,
		AppID:        "QXBwOjE=",
		JWKS:         `{"keys":[]}`,
	}
}

// testAPLContract exercises the behaviour every backend shares
func testAPLContract(t *testing.T, store ports.APL, supportsGetAll bool) {
	t.Helper()
	ctx := context.Background()
	first := "https://shop-one.saleor.cloud/graphql/"
	second := "https://shop-two.saleor.cloud/graphql/"

	t.Run("get of unknown url is nil", func(t *testing.T) {
		got, err := store.Get(ctx, "https://unknown.saleor.cloud/graphql/")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get round trips", func(t *testing.T) {
		record := sampleAuthData(first)
		require.NoError(t, store.Set(ctx, record))

		got, err := store.Get(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, record, got)
	})

	t.Run("set overwrites", func(t *testing.T) {
		updated := sampleAuthData(first)
		updated.Token = "rotated"
		require.NoError(t, store.Set(ctx, updated))

		got, err := store.Get(ctx, first)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "rotated", got.Token)
	})

	t.Run("set rejects invalid records", func(t *testing.T) {
		err := store.Set(ctx, &domain.AuthData{SaleorAPIURL: "not a url", Token: "t", AppID: "a"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("set stores the trimmed url", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, sampleAuthData(" "+first+"\n")))

		got, err := store.Get(ctx, first)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first, got.SaleorAPIURL)
	})

	t.Run("get and delete reject invalid urls", func(t *testing.T) {
		for _, bad := range []string{"", "not a url", first + "#app:configs"} {
			_, err := store.Get(ctx, bad)
			assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
			assert.ErrorIs(t, store.Delete(ctx, bad), domain.ErrInvalidInput, bad)
		}
	})

	t.Run("get all", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, sampleAuthData(second)))

		all, err := store.GetAll(ctx)
		if !supportsGetAll {
			assert.ErrorIs(t, err, domain.ErrUnsupported)
			return
		}
		require.NoError(t, err)
		urls := make([]string, 0, len(all))
		for _, record := range all {
			urls = append(urls, record.SaleorAPIURL)
		}
		assert.ElementsMatch(t, []string{first, second}, urls)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, first))
		require.NoError(t, store.Delete(ctx, first))

		got, err := store.Get(ctx, first)
		require.NoError(t, err)
		assert.Nil(t, got)

		other, err := store.Get(ctx, second)
		require.NoError(t, err)
		assert.NotNil(t, other)
	})
}
