package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weel-backend/internal/cache"
	"weel-backend/internal/models"
	"weel-backend/internal/upay"
	"weel-backend/internal/utils"
)

type fakeGateway struct {
	registerRes *upay.RegisterCardResult
	registerErr error
	confirmRes  *upay.ConfirmCardResult
	confirmErr  error
	listRes     *upay.CardListResult
	listErr     error
	payRes      *upay.PaymentResult
	payErr      error

	gotExDate          string
	gotConfirmID       string
	gotVerifyCode      string
	gotUzcardID        string
	gotPersonalAccount string
	gotAmount          int64
	registerCalls      int
}

func (f *fakeGateway) RegisterCard(_ context.Context, _, exDate string) (*upay.RegisterCardResult, error) {
	f.registerCalls++
	f.gotExDate = exDate
	return f.registerRes, f.registerErr
}

func (f *fakeGateway) ConfirmCard(_ context.Context, confirmID, verifyCode string) (*upay.ConfirmCardResult, error) {
	f.gotConfirmID = confirmID
	f.gotVerifyCode = verifyCode
	return f.confirmRes, f.confirmErr
}

func (f *fakeGateway) CardList(_ context.Context, uzcardID string) (*upay.CardListResult, error) {
	f.gotUzcardID = uzcardID
	return f.listRes, f.listErr
}

func (f *fakeGateway) Payment(_ context.Context, uzcardID, _, personalAccount string, amountTiyin int64) (*upay.PaymentResult, error) {
	f.gotUzcardID = uzcardID
	f.gotPersonalAccount = personalAccount
	f.gotAmount = amountTiyin
	return f.payRes, f.payErr
}

type fakeCardStore struct {
	nextID    int64
	cards     map[int64]*models.Card
	hashes    map[string]bool
	createErr error
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[int64]*models.Card), hashes: make(map[string]bool)}
}

func (f *fakeCardStore) ExistsByNumberHash(hash string) (bool, error) { return f.hashes[hash], nil }

func (f *fakeCardStore) Create(card *models.Card) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	card.ID = f.nextID
	f.cards[card.ID] = card
	f.hashes[card.CardNumberHashed] = true
	return nil
}

func (f *fakeCardStore) GetByID(id int64) (*models.Card, error) { return f.cards[id], nil }

func (f *fakeCardStore) SetBlacklisted(id int64, blacklisted bool) error {
	f.cards[id].IsBlacklisted = blacklisted
	return nil
}

func (f *fakeCardStore) Delete(id int64) error {
	delete(f.cards, id)
	return nil
}

func newPayment() (*PaymentService, *fakeGateway, *fakeCardStore) {
	gw := &fakeGateway{}
	cards := newFakeCardStore()
	svc := NewPaymentService(cache.NewMemoryStore(), gw, cards, utils.NewCardHasher("test-key"))
	return svc, gw, cards
}

func TestStartCardRegistration(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("ok saves pending linkage with transposed expiry", func(t *testing.T) {
		svc, gw, _ := newPayment()
		gw.registerRes = &upay.RegisterCardResult{ConfirmID: "169425"}

		err := svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225")
		require.NoError(t, err)
		assert.Equal(t, "2512", gw.gotExDate)

		linkage, err := svc.loadLinkage(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, linkage)
		assert.Equal(t, "169425", linkage.ConfirmID)
		assert.Equal(t, "8600123456789012", linkage.CardNumber)
		assert.Equal(t, "2512", linkage.ExpiryDate)
	})

	t.Run("duplicate card is rejected before provider call", func(t *testing.T) {
		svc, gw, cards := newPayment()
		cards.hashes[svc.Hasher.Hash("8600123456789012")] = true

		err := svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225")
		assert.ErrorIs(t, err, ErrCardAlreadyExists)
		assert.Equal(t, 0, gw.registerCalls)
	})

	t.Run("invalid expiry", func(t *testing.T) {
		svc, _, _ := newPayment()
		err := svc.StartCardRegistration(ctx, userID, "8600123456789012", "12/25")
		assert.ErrorIs(t, err, upay.ErrInvalidExpiryFormat)
	})

	t.Run("provider rejection passes through verbatim", func(t *testing.T) {
		svc, gw, _ := newPayment()
		gw.registerErr = &upay.ProviderError{Code: "ERROR", Description: "Неверный номер карты"}

		err := svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225")
		var provErr *upay.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "Неверный номер карты", provErr.Description)
	})
}

func TestConfirmCardRegistration(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	register := func(t *testing.T, svc *PaymentService, gw *fakeGateway) {
		gw.registerRes = &upay.RegisterCardResult{ConfirmID: "169425"}
		require.NoError(t, svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225"))
	}

	t.Run("without pending registration", func(t *testing.T) {
		svc, _, _ := newPayment()
		err := svc.ConfirmCardRegistration(ctx, userID, "874123")
		assert.ErrorIs(t, err, ErrConfirmationNotFound)
	})

	t.Run("ok persists hashed card and drops plaintext", func(t *testing.T) {
		svc, gw, cards := newPayment()
		register(t, svc, gw)
		gw.confirmRes = &upay.ConfirmCardResult{UzcardID: "16942587410", CardPhone: "998901234567", Balance: "2500000"}

		err := svc.ConfirmCardRegistration(ctx, userID, "874123")
		require.NoError(t, err)
		assert.Equal(t, "169425", gw.gotConfirmID)
		assert.Equal(t, "874123", gw.gotVerifyCode)

		require.Len(t, cards.cards, 1)
		card := cards.cards[1]
		assert.Equal(t, userID, card.UserID)
		assert.Equal(t, svc.Hasher.Hash("8600123456789012"), card.CardNumberHashed)
		assert.Equal(t, svc.Hasher.Hash("2512"), card.ExpiryDateHashed)
		assert.False(t, card.IsBlacklisted)

		linkage, err := svc.loadLinkage(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, linkage)
		assert.Equal(t, "16942587410", linkage.UzcardID)
		assert.Equal(t, "998901234567", linkage.CardPhone)
		assert.Empty(t, linkage.CardNumber)
		assert.Empty(t, linkage.ExpiryDate)
	})

	t.Run("persist failure keeps pending state", func(t *testing.T) {
		svc, gw, cards := newPayment()
		register(t, svc, gw)
		gw.confirmRes = &upay.ConfirmCardResult{UzcardID: "16942587410", CardPhone: "998901234567"}
		cards.createErr = assert.AnError

		err := svc.ConfirmCardRegistration(ctx, userID, "874123")
		assert.ErrorIs(t, err, ErrPersistenceFailed)

		// pending-состояние нетронуто, подтверждение можно повторить
		linkage, err := svc.loadLinkage(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, linkage)
		assert.Equal(t, "8600123456789012", linkage.CardNumber)
	})
}

func TestPay(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	link := func(t *testing.T, svc *PaymentService, gw *fakeGateway) {
		gw.registerRes = &upay.RegisterCardResult{ConfirmID: "169425"}
		gw.confirmRes = &upay.ConfirmCardResult{UzcardID: "16942587410", CardPhone: "998901234567"}
		require.NoError(t, svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225"))
		require.NoError(t, svc.ConfirmCardRegistration(ctx, userID, "874123"))
	}

	t.Run("without linked card", func(t *testing.T) {
		svc, _, _ := newPayment()
		err := svc.Pay(ctx, userID, 2500000)
		assert.ErrorIs(t, err, ErrCardNotLinked)
	})

	t.Run("ok", func(t *testing.T) {
		svc, gw, _ := newPayment()
		link(t, svc, gw)
		gw.payRes = &upay.PaymentResult{TransactionID: "874512369", Confirmed: "true"}

		err := svc.Pay(ctx, userID, 2500000)
		require.NoError(t, err)
		assert.Equal(t, "16942587410", gw.gotUzcardID)
		assert.Equal(t, userID.String(), gw.gotPersonalAccount)
		assert.Equal(t, int64(2500000), gw.gotAmount)

		linkage, err := svc.loadLinkage(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "874512369", linkage.TransactionID)
	})

	t.Run("card not connected to phone", func(t *testing.T) {
		svc, gw, _ := newPayment()
		link(t, svc, gw)
		gw.payRes = &upay.PaymentResult{TransactionID: "874512369", Confirmed: "false"}

		err := svc.Pay(ctx, userID, 2500000)
		assert.ErrorIs(t, err, ErrCardNotConnectedToPhone)

		// transaction_id сохраняется и при отказе — для сверки с провайдером
		linkage, err := svc.loadLinkage(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "874512369", linkage.TransactionID)
	})
}

func TestListCards(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("without linked card", func(t *testing.T) {
		svc, _, _ := newPayment()
		_, err := svc.ListCards(ctx, userID)
		assert.ErrorIs(t, err, ErrCardNotLinked)
	})

	t.Run("ok", func(t *testing.T) {
		svc, gw, _ := newPayment()
		gw.registerRes = &upay.RegisterCardResult{ConfirmID: "169425"}
		gw.confirmRes = &upay.ConfirmCardResult{UzcardID: "16942587410", CardPhone: "998901234567"}
		require.NoError(t, svc.StartCardRegistration(ctx, userID, "8600123456789012", "1225"))
		require.NoError(t, svc.ConfirmCardRegistration(ctx, userID, "874123"))

		gw.listRes = &upay.CardListResult{Cards: []upay.CardInfo{{UzcardID: "16942587410"}}}
		res, err := svc.ListCards(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "16942587410", gw.gotUzcardID)
		require.Len(t, res.Cards, 1)
	})
}

func TestSetBlacklist(t *testing.T) {
	svc, _, cards := newPayment()
	require.NoError(t, cards.Create(&models.Card{UserID: uuid.New(), CardNumberHashed: "h1"}))

	t.Run("missing card", func(t *testing.T) {
		assert.ErrorIs(t, svc.SetBlacklist(404, true), ErrCardNotFound)
	})

	t.Run("toggle", func(t *testing.T) {
		require.NoError(t, svc.SetBlacklist(1, true))
		assert.True(t, cards.cards[1].IsBlacklisted)

		assert.ErrorIs(t, svc.SetBlacklist(1, true), ErrAlreadyInState)

		require.NoError(t, svc.SetBlacklist(1, false))
		assert.ErrorIs(t, svc.SetBlacklist(1, false), ErrAlreadyInState)
	})
}

func TestDeleteCard(t *testing.T) {
	svc, _, cards := newPayment()
	require.NoError(t, cards.Create(&models.Card{UserID: uuid.New(), CardNumberHashed: "h1"}))

	assert.ErrorIs(t, svc.DeleteCard(404), ErrCardNotFound)

	require.NoError(t, svc.DeleteCard(1))
	_, err := svc.Card(1)
	assert.ErrorIs(t, err, ErrCardNotFound)
}
