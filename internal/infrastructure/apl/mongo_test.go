package apl

import (
	"context"
	"testing"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/mongodb"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func authDataNamespace(mt *mtest.T) string {
	return mt.DB.Name() + "." + AuthDataCollection
}

func authDataDoc(url string) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "saleorApiUrl", Value: url},
		{Key: "token", Value: "token-for-" + url},
		{Key: "appId", Value: "QXBwOjE="},
		{Key: "jwks", Value: `{"keys":[]}`},
	}
}

// sentCommand returns the first command with the given name the mock client sent
func sentCommand(mt *mtest.T, name string) bson.Raw {
	mt.Helper()
	for e := mt.GetStartedEvent(); e != nil; e = mt.GetStartedEvent() {
		if e.CommandName == name {
			return e.Command
		}
	}
	mt.Fatalf("no %s command was sent", name)
	return nil
}

// onlyUpdate returns the single statement of an update command
func onlyUpdate(mt *mtest.T, cmd bson.Raw) bson.Raw {
	mt.Helper()
	statements, err := cmd.Lookup("updates").Array().Values()
	require.NoError(mt, err)
	require.Len(mt, statements, 1)
	return statements[0].Document()
}

func TestMongoAPL(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	url := "https://shop.saleor.cloud/graphql/"

	newStore := func(mt *mtest.T) *MongoAPL {
		return NewMongoAPL(mongodb.NewConnectorWithDatabase(mt.DB, zerolog.Nop()), zerolog.Nop())
	}

	mt.Run("get strips the storage id", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch, authDataDoc(url)),
		)

		got, err := newStore(mt).Get(ctx, url)
		require.NoError(mt, err)
		assert.Equal(mt, sampleAuthData(url), got)
	})

	mt.Run("get of unknown url is nil", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch),
		)

		got, err := newStore(mt).Get(ctx, url)
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("index is created once per process", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch, authDataDoc(url)),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch, authDataDoc(url)),
		)
		store := newStore(mt)

		for i := 0; i < 2; i++ {
			got, err := store.Get(ctx, url)
			require.NoError(mt, err)
			require.NotNil(mt, got)
		}
	})

	mt.Run("set replaces the record with an upsert", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}),
		)

		require.NoError(mt, newStore(mt).Set(ctx, sampleAuthData(url)))

		statement := onlyUpdate(mt, sentCommand(mt, "update"))
		assert.Equal(mt, url, statement.Lookup("q", "saleorApiUrl").StringValue())
		assert.True(mt, statement.Lookup("upsert").Boolean())

		replacement := statement.Lookup("u").Document()
		_, err := replacement.LookupErr("$set")
		assert.Error(mt, err, "replacement must not be an update operator")
		assert.Equal(mt, url, replacement.Lookup("saleorApiUrl").StringValue())
		assert.Equal(mt, "token-for-"+url, replacement.Lookup("token").StringValue())
		assert.Equal(mt, `{"keys":[]}`, replacement.Lookup("jwks").StringValue())
	})

	mt.Run("set without a key set drops the stored one", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		record := sampleAuthData(url)
		record.JWKS = ""
		record.Token = "rotated"

		require.NoError(mt, newStore(mt).Set(ctx, record))

		replacement := onlyUpdate(mt, sentCommand(mt, "update")).Lookup("u").Document()
		_, err := replacement.LookupErr("$set")
		assert.Error(mt, err)
		_, err = replacement.LookupErr("jwks")
		assert.Error(mt, err, "an absent field in a replacement removes the stored value")
		assert.Equal(mt, "rotated", replacement.Lookup("token").StringValue())
	})

	mt.Run("set stores the trimmed url", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		require.NoError(mt, newStore(mt).Set(ctx, sampleAuthData("  "+url+"\n")))

		statement := onlyUpdate(mt, sentCommand(mt, "update"))
		assert.Equal(mt, url, statement.Lookup("q", "saleorApiUrl").StringValue())
		assert.Equal(mt, url, statement.Lookup("u", "saleorApiUrl").StringValue())
	})

	mt.Run("get and delete reject invalid urls before any I/O", func(mt *mtest.T) {
		store := newStore(mt)

		for _, bad := range []string{"", "not a url", "https://shop.saleor.cloud/graphql/#apl"} {
			_, err := store.Get(ctx, bad)
			assert.ErrorIs(mt, err, domain.ErrInvalidInput)
			assert.ErrorIs(mt, store.Delete(ctx, bad), domain.ErrInvalidInput)
		}
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("set failure is a connection error", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "boom"}),
		)

		err := newStore(mt).Set(ctx, sampleAuthData(url))
		assert.ErrorIs(mt, err, domain.ErrConnection)
	})

	mt.Run("index creation failure surfaces and is retried", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "no index"}),
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch),
		)
		store := newStore(mt)

		_, err := store.Get(ctx, url)
		assert.ErrorIs(mt, err, domain.ErrConnection)

		got, err := store.Get(ctx, url)
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("get all", func(mt *mtest.T) {
		other := "https://other.saleor.cloud/graphql/"
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, authDataNamespace(mt), mtest.FirstBatch, authDataDoc(other), authDataDoc(url)),
		)

		all, err := newStore(mt).GetAll(ctx)
		require.NoError(mt, err)
		require.Len(mt, all, 2)
		assert.Equal(mt, other, all[0].SaleorAPIURL)
		assert.Equal(mt, url, all[1].SaleorAPIURL)
	})

	mt.Run("delete of absent record succeeds", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, newStore(mt).Delete(ctx, url))

		cmd := sentCommand(mt, "delete")
		statements, err := cmd.Lookup("deletes").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, statements, 1)
		assert.Equal(mt, url, statements[0].Document().Lookup("q", "saleorApiUrl").StringValue())
	})

	mt.Run("ready", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := newStore(mt)

		assert.True(mt, store.IsReady(ctx).Ready)
		assert.True(mt, store.IsConfigured(ctx).Configured)
	})

	mt.Run("not ready when ping fails", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "down"}))

		result := newStore(mt).IsReady(ctx)
		assert.False(mt, result.Ready)
		assert.ErrorIs(mt, result.Error, domain.ErrConnection)
	})
}

func TestMongoAPL_Unconfigured(t *testing.T) {
	store := NewMongoAPL(mongodb.NewConnector("", "", zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	configured := store.IsConfigured(ctx)
	assert.False(t, configured.Configured)
	assert.ErrorIs(t, configured.Error, domain.ErrMisconfigured)

	_, err := store.Get(ctx, "https://shop.saleor.cloud/graphql/")
	assert.ErrorIs(t, err, domain.ErrMisconfigured)
	assert.ErrorIs(t, err, domain.ErrConnection)
}
