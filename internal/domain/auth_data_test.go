package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSaleorAPIURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"https://shop.saleor.cloud/graphql/", "https://shop.saleor.cloud/graphql/", false},
		{"  http://localhost:8000/graphql/ ", "http://localhost:8000/graphql/", false},
		{"", "", true},
		{"shop.saleor.cloud/graphql/", "", true},
		{"ftp://shop.saleor.cloud/", "", true},
		{"https:///graphql/", "", true},
		{"https://shop.saleor.cloud/graphql/#app:configs", "", true},
		{"https://shop.saleor.cloud/graphql/#", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NewSaleorAPIURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthData_Validate(t *testing.T) {
	valid := AuthData{SaleorAPIURL: "https://shop.saleor.cloud/graphql/", Token: "token", AppID: "QXBwOjE="}
	assert.NoError(t, valid.Validate())

	padded := valid
	padded.SaleorAPIURL = "  https://shop.saleor.cloud/graphql/\t"
	require.NoError(t, padded.Validate())
	assert.Equal(t, "https://shop.saleor.cloud/graphql/", padded.SaleorAPIURL)

	var missing *AuthData
	assert.ErrorIs(t, missing.Validate(), ErrInvalidInput)

	noToken := valid
	noToken.Token = ""
	assert.ErrorIs(t, noToken.Validate(), ErrInvalidInput)

	noApp := valid
	noApp.AppID = ""
	assert.ErrorIs(t, noApp.Validate(), ErrInvalidInput)
}

func TestScopeFromContext(t *testing.T) {
	ctx := WithAppID(WithSaleorAPIURL(context.Background(), "https://shop.saleor.cloud/graphql/"), "QXBwOjE=")

	assert.Equal(t, InstallationScope{SaleorAPIURL: "https://shop.saleor.cloud/graphql/", AppID: "QXBwOjE="}, ScopeFromContext(ctx))
	assert.Empty(t, GetAppIDFromContext(context.Background()))
}
