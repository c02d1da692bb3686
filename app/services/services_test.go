package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/app/services"
	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/internal/testdb"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/event"
	"github.com/humanebio/storefront/pkg/oauth"
	"github.com/humanebio/storefront/pkg/payment"
)

type fixture struct {
	db       *gorm.DB
	products *repositories.ProductRepository
	cartRepo *repositories.CartRepository
	orders   *repositories.OrderRepository
	users    *repositories.UserRepository
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t)
	return &fixture{
		db:       db,
		products: repositories.NewProductRepository(db),
		cartRepo: repositories.NewCartRepository(db),
		orders:   repositories.NewOrderRepository(db),
		users:    repositories.NewUserRepository(db),
	}
}

func (f *fixture) product(t *testing.T, name string, price int64, active bool) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: models.CategoryPeptide, Price: price, Active: active}
	require.NoError(t, f.products.Create(ctx, p))
	return p
}

func (f *fixture) user(t *testing.T, openID string) *models.User {
	t.Helper()
	u, err := f.users.Upsert(ctx, models.UserProfile{OpenID: openID, Name: openID}, "")
	require.NoError(t, err)
	return u
}

func TestCartAddItemRejectsMissingAndInactiveProducts(t *testing.T) {
	f := newFixture(t)
	cart := services.NewCartService(f.cartRepo, f.products)
	hidden := f.product(t, "Retired", 1000, false)

	err := cart.AddItem(ctx, 1, 999, 1)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.True(t, errors.Is(err, services.ErrProductNotFound))

	assert.Equal(t, apperr.NotFound, apperr.KindOf(cart.AddItem(ctx, 1, hidden.ID, 1)))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(cart.AddItem(ctx, 1, hidden.ID, 0)))
}

func TestCartUpdateItemNonPositiveRemovesLine(t *testing.T) {
	for _, q := range []int{0, -1} {
		f := newFixture(t)
		cart := services.NewCartService(f.cartRepo, f.products)
		p := f.product(t, "Semax", 4999, true)

		require.NoError(t, cart.AddItem(ctx, 1, p.ID, 2))
		items, err := cart.GetItems(ctx, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)

		require.NoError(t, cart.UpdateItem(ctx, 1, items[0].ID, q))
		items, err = cart.GetItems(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, items, "quantity %d", q)
	}
}

func TestCheckoutEmptyCartNeverCallsProvider(t *testing.T) {
	f := newFixture(t)
	pay := &fakePayments{}
	checkout := services.NewCheckoutService(f.cartRepo, f.products, f.users,
		services.NewOrderService(f.orders, nil), pay, "https://shop.example.com")

	_, err := checkout.CreateSession(ctx, services.CheckoutRequest{UserID: 1})
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	assert.True(t, errors.Is(err, services.ErrCartEmpty))
	assert.Empty(t, pay.requests)
}

func TestCheckoutPricesFromCatalogue(t *testing.T) {
	f := newFixture(t)
	pay := &fakePayments{}
	checkout := services.NewCheckoutService(f.cartRepo, f.products, f.users,
		services.NewOrderService(f.orders, nil), pay, "https://shop.example.com/")
	bpc := f.product(t, "BPC 157", 7999, true)
	require.NoError(t, f.cartRepo.AddOrIncrement(ctx, 4, bpc.ID, 2))

	sess, err := checkout.CreateSession(ctx, services.CheckoutRequest{
		UserID:   4,
		Email:    "buyer@example.com",
		Shipping: models.Shipping{Name: "Buyer", City: "Oslo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)

	require.Len(t, pay.requests, 1)
	req := pay.requests[0]
	require.Len(t, req.Items, 1)
	assert.EqualValues(t, 7999, req.Items[0].UnitAmount)
	assert.EqualValues(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "buyer@example.com", req.CustomerEmail)
	assert.Equal(t, "https://shop.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.Equal(t, "https://shop.example.com/cart", req.CancelURL)
	assert.Equal(t, "Oslo", req.Metadata["shipping_city"])
}

func TestCheckoutProviderFailureIsPaymentProvider(t *testing.T) {
	f := newFixture(t)
	pay := &fakePayments{err: errors.New("stripe down")}
	checkout := services.NewCheckoutService(f.cartRepo, f.products, f.users,
		services.NewOrderService(f.orders, nil), pay, "https://shop.example.com")
	p := f.product(t, "Selank", 3999, true)
	require.NoError(t, f.cartRepo.AddOrIncrement(ctx, 1, p.ID, 1))

	_, err := checkout.CreateSession(ctx, services.CheckoutRequest{UserID: 1})
	assert.Equal(t, apperr.PaymentProvider, apperr.KindOf(err))
}

func TestCheckoutConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "buyer")
	p := f.product(t, "BPC 157", 7999, true)
	require.NoError(t, f.cartRepo.AddOrIncrement(ctx, u.ID, p.ID, 2))

	pay := &fakePayments{details: map[string]*payment.SessionDetails{
		"cs_paid": {
			ID: "cs_paid", Paid: true, UserID: u.ID, CustomerID: "cus_1",
			Items:    []payment.PaidItem{{ProductID: p.ID, Quantity: 2, UnitAmount: 7999}},
			Metadata: map[string]string{"shipping_name": "Buyer", "shipping_country": "NO"},
		},
		"cs_unpaid": {ID: "cs_unpaid", UserID: u.ID},
	}, err: apperr.New(apperr.NotFound, "payments.retrieve", "Checkout session not found")}

	bus := event.New()
	var created []*models.Order
	bus.Listen(services.EventOrderCreated, func(_ context.Context, payload interface{}) {
		created = append(created, payload.(*models.Order))
	})

	checkout := services.NewCheckoutService(f.cartRepo, f.products, f.users,
		services.NewOrderService(f.orders, bus), pay, "https://shop.example.com")

	first, err := checkout.Confirm(ctx, u.ID, "cs_paid")
	require.NoError(t, err)
	assert.EqualValues(t, 15998, first.TotalAmount)
	assert.Equal(t, models.OrderPaid, first.Status)
	assert.Equal(t, "Buyer", first.ShippingName)
	assert.Equal(t, "NO", first.ShippingCountry)

	again, err := checkout.Confirm(ctx, u.ID, "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	require.Len(t, created, 1, "a repeated confirm creates nothing")
	assert.Equal(t, first.ID, created[0].ID)

	all, err := f.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	left, err := f.cartRepo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", stored.StripeCustomerID)

	_, err = checkout.Confirm(ctx, u.ID+1, "cs_paid")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = checkout.Confirm(ctx, u.ID, "cs_unpaid")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	_, err = checkout.Confirm(ctx, u.ID, "cs_missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	_, err = checkout.Confirm(ctx, u.ID, " ")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
}

func TestOrderGetForUserHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	orders := services.NewOrderService(f.orders, nil)

	o, err := orders.Materialize(ctx, services.ConfirmedPayment{
		Ref: "cs_x", UserID: 1,
		Items: []payment.PaidItem{{ProductID: 1, Quantity: 1, UnitAmount: 500}},
	})
	require.NoError(t, err)

	_, err = orders.GetForUser(ctx, 2, false, o.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	got, err := orders.GetForUser(ctx, 2, true, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	got, err = orders.GetForUser(ctx, 1, false, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestOrderUpdateStatusFiresEvent(t *testing.T) {
	f := newFixture(t)
	bus := event.New()
	var seen []models.OrderStatus
	bus.Listen(services.EventOrderStatusUpdated, func(_ context.Context, payload interface{}) {
		seen = append(seen, payload.(*models.Order).Status)
	})
	orders := services.NewOrderService(f.orders, bus)

	o, err := orders.Materialize(ctx, services.ConfirmedPayment{
		Ref: "cs_y", UserID: 1,
		Items: []payment.PaidItem{{ProductID: 1, Quantity: 1, UnitAmount: 500}},
	})
	require.NoError(t, err)

	_, err = orders.UpdateStatus(ctx, o.ID, models.OrderStatus("lost"))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	updated, err := orders.UpdateStatus(ctx, o.ID, models.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, updated.Status)
	assert.Equal(t, []models.OrderStatus{models.OrderShipped}, seen)
}

func TestReviewSubmitAnonymousIsPendingAndHidden(t *testing.T) {
	f := newFixture(t)
	reviews := services.NewReviewService(repositories.NewReviewRepository(f.db), f.products)
	p := f.product(t, "Semax", 4999, true)

	r, err := reviews.Submit(ctx, services.ReviewInput{ProductID: p.ID, Rating: 5, Title: " Great ", Content: "Works"})
	require.NoError(t, err)
	assert.Nil(t, r.UserID)
	assert.False(t, r.Approved)
	assert.Equal(t, "Great", r.Title)

	public, err := reviews.ListForProduct(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, reviews.SetApproval(ctx, r.ID, true))
	public, err = reviews.ListForProduct(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Len(t, public, 1)
}

func TestReviewSubmitValidation(t *testing.T) {
	f := newFixture(t)
	reviews := services.NewReviewService(repositories.NewReviewRepository(f.db), f.products)
	p := f.product(t, "Semax", 4999, true)

	cases := []services.ReviewInput{
		{ProductID: p.ID, Rating: 0, Title: "t", Content: "c"},
		{ProductID: p.ID, Rating: 6, Title: "t", Content: "c"},
		{ProductID: p.ID, Rating: 3, Title: "   ", Content: "c"},
		{ProductID: p.ID, Rating: 3, Title: "t", Content: strings.Repeat("x", 5001)},
	}
	for _, in := range cases {
		_, err := reviews.Submit(ctx, in)
		assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	}

	_, err := reviews.Submit(ctx, services.ReviewInput{ProductID: 999, Rating: 3, Title: "t", Content: "c"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestAverageRatingRoundsToOneDecimal(t *testing.T) {
	f := newFixture(t)
	repo := repositories.NewReviewRepository(f.db)
	reviews := services.NewReviewService(repo, f.products)
	p := f.product(t, "Semax", 4999, true)

	assert.Equal(t, models.RatingSummary{}, reviews.AverageRating(ctx, p.ID))

	for _, rating := range []int{5, 4, 4} {
		r, err := reviews.Submit(ctx, services.ReviewInput{ProductID: p.ID, Rating: rating, Title: "t", Content: "c"})
		require.NoError(t, err)
		require.NoError(t, reviews.SetApproval(ctx, r.ID, true))
	}
	_, err := reviews.Submit(ctx, services.ReviewInput{ProductID: p.ID, Rating: 1, Title: "t", Content: "c"})
	require.NoError(t, err)

	assert.Equal(t, models.RatingSummary{AverageRating: 4.3, TotalReviews: 3}, reviews.AverageRating(ctx, p.ID))
}

func TestCatalogHidesInactiveAndUploadsImages(t *testing.T) {
	f := newFixture(t)
	disk := &memDisk{}
	catalog := services.NewCatalogService(f.products, disk)

	off := false
	hidden, err := catalog.Create(ctx, services.ProductInput{Name: "Old", Category: "nootropic", Price: 100, Active: &off})
	require.NoError(t, err)
	shown, err := catalog.Create(ctx, services.ProductInput{Name: "New", Category: "peptide", Price: 200})
	require.NoError(t, err)
	assert.True(t, shown.Active)

	list := catalog.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, shown.ID, list[0].ID)

	got, err := catalog.Get(ctx, hidden.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = catalog.Create(ctx, services.ProductInput{Name: "Bad", Category: "snack", Price: 1})
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	res, err := catalog.UploadImage(ctx, shown.ID, png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "products/product-"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Contains(t, disk.files, res.Key)

	got, err = catalog.Get(ctx, shown.ID)
	require.NoError(t, err)
	assert.Equal(t, res.URL, got.Image)

	_, err = catalog.UploadImage(ctx, shown.ID, []byte("plain text, not an image"))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	_, err = catalog.UploadImage(ctx, shown.ID, make([]byte, services.MaxImageBytes+1))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))

	disk.err = errors.New("bucket gone")
	_, err = catalog.UploadImage(ctx, shown.ID, png)
	assert.Equal(t, apperr.StorageProvider, apperr.KindOf(err))
}

func TestChatUsesPromptHistoryAndStoresTurns(t *testing.T) {
	f := newFixture(t)
	settings := repositories.NewSettingRepository(f.db)
	chatRepo := repositories.NewChatRepository(f.db)
	model := &fakeLLM{reply: "Try L-theanine."}
	chat := services.NewChatService(chatRepo, settings, model)

	require.NoError(t, settings.Set(ctx, models.SettingLLMPrompt, "Be brief."))
	uid := uint(3)

	reply, err := chat.Send(ctx, &uid, "Focus?")
	require.NoError(t, err)
	assert.Equal(t, "Try L-theanine.", reply)

	_, err = chat.Send(ctx, &uid, "Sleep?")
	require.NoError(t, err)

	require.Len(t, model.got, 2)
	second := model.got[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, "system", second[0].Role)
	assert.Equal(t, "Be brief.", second[0].Content)
	assert.Equal(t, "Focus?", second[1].Content)
	assert.Equal(t, "assistant", second[2].Role)
	assert.Equal(t, "Sleep?", second[3].Content)

	history, err := chatRepo.ListByUser(ctx, uid, 10)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChatFallsBackWhenModelFails(t *testing.T) {
	f := newFixture(t)
	chatRepo := repositories.NewChatRepository(f.db)
	model := &fakeLLM{err: apperr.New(apperr.LLMProvider, "llm.complete", "upstream failed")}
	chat := services.NewChatService(chatRepo, repositories.NewSettingRepository(f.db), model)

	reply, err := chat.Send(ctx, nil, "Hello")
	require.NoError(t, err)
	assert.Equal(t, services.FallbackReply, reply)
	assert.Equal(t, services.DefaultSystemPrompt, model.got[0].Messages[0].Content)

	recent, err := chatRepo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "anonymous chats are not stored")

	_, err = chat.Send(ctx, nil, "")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	_, err = chat.Send(ctx, nil, strings.Repeat("a", services.MaxChatMessageLength+1))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
}

func TestNewsletterSubscribeNormalisesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	repo := repositories.NewNewsletterRepository(f.db)
	news := services.NewNewsletterService(repo)

	require.NoError(t, news.Subscribe(ctx, " Reader@Example.com "))
	require.NoError(t, news.Subscribe(ctx, "reader@example.com"))

	n, err := repo.Count(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, apperr.BadRequest, apperr.KindOf(news.Subscribe(ctx, "not-an-email")))
}

func TestSettingsPartialUpdate(t *testing.T) {
	f := newFixture(t)
	settings := services.NewSettingsService(repositories.NewSettingRepository(f.db))

	email := "hi@example.com"
	_, err := settings.UpdateContact(ctx, services.ContactSettingsPatch{Email: &email})
	require.NoError(t, err)

	discord := "https://discord.gg/x"
	got, err := settings.UpdateContact(ctx, services.ContactSettingsPatch{Discord: &discord})
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, discord, got.Discord)
	assert.Empty(t, got.Telegram)
}

func TestAuthLoginPromotesOwnerAndLookupReloadsRole(t *testing.T) {
	config.Set("JWT_SECRET", "services-secret")
	f := newFixture(t)
	idp := fakeIdP{profile: &oauth.Profile{OpenID: "owner-1", Name: "Owner", Email: "o@example.com"}}
	svc := services.NewAuthService(f.users, idp, "owner-1")

	token, user, err := svc.Login(ctx, "code", "https://shop.example.com/api/oauth/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, user.Role)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	id, err := svc.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())

	me, err := svc.Me(auth.WithIdentity(ctx, id))
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	me, err = svc.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)

	failing := services.NewAuthService(f.users, fakeIdP{err: apperr.New(apperr.Unauthorized, "oauth.exchange", "bad code")}, "")
	_, _, err = failing.Login(ctx, "x", "")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
}
