package repositories_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanebio/storefront/app/models"
	"github.com/humanebio/storefront/app/repositories"
	"github.com/humanebio/storefront/internal/testdb"
	"github.com/humanebio/storefront/pkg/apperr"
	"github.com/humanebio/storefront/pkg/database"
)

var ctx = context.Background()

func seedProduct(t *testing.T, repo *repositories.ProductRepository, name string, price int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: models.CategoryPeptide, Price: price, Active: true}
	require.NoError(t, repo.Create(ctx, p))
	return p
}

func TestUserUpsertPromotesOwner(t *testing.T) {
	users := repositories.NewUserRepository(testdb.Open(t))

	u, err := users.Upsert(ctx, models.UserProfile{OpenID: "abc", Name: "Ada", Email: "ada@example.com"}, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	again, err := users.Upsert(ctx, models.UserProfile{OpenID: "abc", Name: "Ada L."}, "owner")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Ada L.", again.Name)

	owner, err := users.Upsert(ctx, models.UserProfile{OpenID: "owner", Name: "Boss"}, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, owner.Role)

	_, err = users.FindByID(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCartAddMergesIntoOneRow(t *testing.T) {
	db := testdb.Open(t)
	cart := repositories.NewCartRepository(db)
	p := seedProduct(t, repositories.NewProductRepository(db), "Semax", 4999)

	require.NoError(t, cart.AddOrIncrement(ctx, 1, p.ID, 2))
	require.NoError(t, cart.AddOrIncrement(ctx, 1, p.ID, 3))

	items, err := cart.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Semax", items[0].Product.Name)
}

func TestCartConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	db := testdb.Open(t)
	cart := repositories.NewCartRepository(db)
	p := seedProduct(t, repositories.NewProductRepository(db), "Selank", 3999)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cart.AddOrIncrement(ctx, 7, p.ID, 1))
		}()
	}
	wg.Wait()

	items, err := cart.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestCartOwnershipAndIdempotentDelete(t *testing.T) {
	db := testdb.Open(t)
	cart := repositories.NewCartRepository(db)
	p := seedProduct(t, repositories.NewProductRepository(db), "Noopept", 1999)

	require.NoError(t, cart.AddOrIncrement(ctx, 1, p.ID, 1))
	items, _ := cart.ListByUser(ctx, 1)
	id := items[0].ID

	err := cart.SetQuantity(ctx, 2, id, 4)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	require.NoError(t, cart.Delete(ctx, 2, id))
	items, _ = cart.ListByUser(ctx, 1)
	assert.Len(t, items, 1, "another user's delete must not touch the row")

	require.NoError(t, cart.SetQuantity(ctx, 1, id, 4))
	items, _ = cart.ListByUser(ctx, 1)
	assert.Equal(t, 4, items[0].Quantity)

	assert.Equal(t, apperr.BadRequest, apperr.KindOf(cart.SetQuantity(ctx, 1, id, 0)))

	require.NoError(t, cart.Delete(ctx, 1, id))
	require.NoError(t, cart.Delete(ctx, 1, id))
	items, _ = cart.ListByUser(ctx, 1)
	assert.Empty(t, items)
}

func TestOrderCreateWithItemsClearsCartAtomically(t *testing.T) {
	db := testdb.Open(t)
	products := repositories.NewProductRepository(db)
	cart := repositories.NewCartRepository(db)
	orders := repositories.NewOrderRepository(db)
	p := seedProduct(t, products, "BPC 157", 7999)
	later := seedProduct(t, products, "Semax", 4999)

	require.NoError(t, cart.AddOrIncrement(ctx, 3, p.ID, 2))
	require.NoError(t, cart.AddOrIncrement(ctx, 3, later.ID, 1))

	ref := "cs_test_1"
	order := &models.Order{UserID: 3, Status: models.OrderPaid, TotalAmount: 15998, PaymentRef: &ref}
	items := []models.OrderItem{{ProductID: p.ID, Quantity: 2, PriceAtPurchase: 7999}}
	require.NoError(t, orders.CreateWithItems(ctx, order, items, true))
	assert.NotZero(t, order.ID)

	left, _ := cart.ListByUser(ctx, 3)
	require.Len(t, left, 1, "only purchased lines leave the cart")
	assert.Equal(t, later.ID, left[0].ProductID)

	got, err := orders.FindByPaymentRef(ctx, ref)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.EqualValues(t, 7999, got.Items[0].PriceAtPurchase)

	dup := &models.Order{UserID: 3, Status: models.OrderPaid, PaymentRef: &ref}
	err = orders.CreateWithItems(ctx, dup, nil, true)
	assert.True(t, errors.Is(err, repositories.ErrDuplicatePayment))

	all, err := orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOrderCreateRollsBackOnItemFailure(t *testing.T) {
	db := testdb.Open(t)
	orders := repositories.NewOrderRepository(db)

	require.NoError(t, db.Exec("DROP TABLE order_items").Error)

	order := &models.Order{UserID: 1, Status: models.OrderPaid, TotalAmount: 100}
	err := orders.CreateWithItems(ctx, order, []models.OrderItem{{ProductID: 1, Quantity: 1, PriceAtPurchase: 100}}, false)
	require.Error(t, err)
	assert.Zero(t, order.ID)

	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n, "no order without its items")
}

func TestOrderUpdateStatus(t *testing.T) {
	db := testdb.Open(t)
	orders := repositories.NewOrderRepository(db)

	order := &models.Order{UserID: 1, Status: models.OrderPending, TotalAmount: 100}
	require.NoError(t, orders.CreateWithItems(ctx, order, nil, false))

	require.NoError(t, orders.UpdateStatus(ctx, order.ID, models.OrderShipped))
	require.NoError(t, orders.UpdateStatus(ctx, order.ID, models.OrderShipped))

	got, err := orders.FindWithItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, got.Status)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(orders.UpdateStatus(ctx, 4242, models.OrderPaid)))
}

func TestReviewStatsIgnorePending(t *testing.T) {
	db := testdb.Open(t)
	reviews := repositories.NewReviewRepository(db)

	avg, total, err := reviews.ApprovedStats(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, total)

	for _, r := range []struct {
		rating   int
		approved bool
	}{{5, true}, {4, true}, {4, true}, {1, false}} {
		rev := &models.Review{ProductID: 1, Rating: r.rating, Title: "t", Content: "c"}
		require.NoError(t, reviews.Create(ctx, rev))
		if r.approved {
			require.NoError(t, reviews.SetApproval(ctx, rev.ID, true))
		}
	}

	avg, total, err = reviews.ApprovedStats(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 13.0/3.0, avg, 1e-9)
	assert.EqualValues(t, 3, total)

	pending, err := reviews.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(reviews.SetApproval(ctx, 999, true)))
	require.NoError(t, reviews.Delete(ctx, 999))
}

func TestNewsletterSubscribeIsIdempotent(t *testing.T) {
	news := repositories.NewNewsletterRepository(testdb.Open(t))

	created, err := news.Subscribe(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = news.Subscribe(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := news.Count(ctx, "reader@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSettingsUpsert(t *testing.T) {
	settings := repositories.NewSettingRepository(testdb.Open(t))

	_, ok, err := settings.Get(ctx, models.SettingLLMPrompt)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Set(ctx, models.SettingLLMPrompt, "first"))
	require.NoError(t, settings.SetMany(ctx, map[string]string{
		models.SettingLLMPrompt:    "second",
		models.SettingContactEmail: "hi@example.com",
	}))

	v, ok, err := settings.Get(ctx, models.SettingLLMPrompt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	many, err := settings.GetMany(ctx, models.SettingContactEmail, models.SettingContactDiscord)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{models.SettingContactEmail: "hi@example.com"}, many)
}

func TestChatHistoryOrdering(t *testing.T) {
	chat := repositories.NewChatRepository(testdb.Open(t))
	uid := uint(5)

	for i := 0; i < 6; i++ {
		role := models.ChatUser
		if i%2 == 1 {
			role = models.ChatAssistant
		}
		require.NoError(t, chat.Append(ctx, &models.ChatMessage{UserID: &uid, Role: role, Content: string(rune('a' + i))}))
	}

	last, err := chat.ListByUser(ctx, uid, 4)
	require.NoError(t, err)
	require.Len(t, last, 4)
	assert.Equal(t, "c", last[0].Content)
	assert.Equal(t, "f", last[3].Content)

	recent, err := chat.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "f", recent[0].Content)
}

func TestClosedStoreIsPersistenceUnavailable(t *testing.T) {
	db := testdb.Open(t)
	products := repositories.NewProductRepository(db)
	require.NoError(t, database.Close(db))

	_, err := products.ListActive(ctx)
	assert.Equal(t, apperr.PersistenceUnavailable, apperr.KindOf(err))
}
