package application

import (
	"context"
	"errors"
	"testing"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"
	"saleor-apps-core/internal/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPagesForSKU(t *testing.T) {
	assert.Equal(t, 500, PagesForSKU("OCR-500"))
	assert.Equal(t, 25000, PagesForSKU("OCR-25000"))
	assert.Equal(t, 0, PagesForSKU("TSHIRT-M"))
	assert.Equal(t, 0, PagesForSKU(""))
}

func TestCreditsService_ProvisionOrder(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.CreditsClient)
	svc := NewCreditsService(client, zerolog.Nop())

	order := &domain.Order{
		ID:        "T3JkZXI6MQ==",
		UserEmail: "buyer@example.com",
		Lines: []domain.OrderLine{
			{ID: "l1", ProductSKU: "OCR-1000", Quantity: 2},
			{ID: "l2", ProductSKU: "TSHIRT-M", Quantity: 1},
			{ID: "l3", ProductSKU: "", Quantity: 1},
			{ID: "l4", ProductSKU: "OCR-500", Quantity: 1},
		},
	}

	client.On("AddCredits", ctx, ports.CreditTopUpRequest{AccountID: "buyer@example.com", Pages: 2000, OrderID: order.ID, Source: CreditsSource}).
		Return(&ports.CreditTopUpResponse{PagesAdded: 2000}, nil).Once()
	client.On("AddCredits", ctx, ports.CreditTopUpRequest{AccountID: "buyer@example.com", Pages: 500, OrderID: order.ID, Source: CreditsSource}).
		Return(&ports.CreditTopUpResponse{PagesAdded: 500}, nil).Once()

	result, err := svc.ProvisionOrder(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, &ProvisionResult{AccountID: "buyer@example.com", CreditsAdded: 2500}, result)
	client.AssertExpectations(t)
}

func TestCreditsService_NoCreditLines(t *testing.T) {
	client := new(mocks.CreditsClient)
	order := &domain.Order{ID: "o", UserEmail: "buyer@example.com", Lines: []domain.OrderLine{{ID: "l1", ProductSKU: "TSHIRT-M", Quantity: 3}}}

	result, err := NewCreditsService(client, zerolog.Nop()).ProvisionOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreditsAdded)
	client.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything)
}

func TestCreditsService_RequiresEmail(t *testing.T) {
	client := new(mocks.CreditsClient)
	order := &domain.Order{ID: "o", Lines: []domain.OrderLine{{ID: "l1", ProductSKU: "OCR-500", Quantity: 1}}}

	_, err := NewCreditsService(client, zerolog.Nop()).ProvisionOrder(context.Background(), order)
	assert.ErrorIs(t, err, ErrNoCustomerEmail)
	client.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything)
}

func TestCreditsService_StopsAtFirstFailure(t *testing.T) {
	client := new(mocks.CreditsClient)
	order := &domain.Order{
		ID:        "o",
		UserEmail: "buyer@example.com",
		Lines: []domain.OrderLine{
			{ID: "l1", ProductSKU: "OCR-500", Quantity: 1},
			{ID: "l2", ProductSKU: "OCR-1000", Quantity: 1},
		},
	}
	client.On("AddCredits", mock.Anything, mock.Anything).Return(nil, errors.New("502")).Once()

	_, err := NewCreditsService(client, zerolog.Nop()).ProvisionOrder(context.Background(), order)
	assert.ErrorContains(t, err, "OCR-500")
	client.AssertNumberOfCalls(t, "AddCredits", 1)
}
