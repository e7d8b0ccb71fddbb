package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	restaurants map[int64]*Restaurant
	menu        map[int64]*MenuItem
	nextID      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		restaurants: make(map[int64]*Restaurant),
		menu:        make(map[int64]*MenuItem),
	}
}

func (m *mockRepo) ListRestaurants(_ context.Context) ([]Restaurant, error) {
	out := make([]Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRepo) GetRestaurant(_ context.Context, id int64) (*Restaurant, error) {
	r, ok := m.restaurants[id]
	if !ok {
		return nil, ErrRestaurantNotFound
	}
	return r, nil
}

func (m *mockRepo) CreateRestaurant(_ context.Context, r *Restaurant) error {
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.restaurants[r.ID] = &cp
	return nil
}

func (m *mockRepo) DeleteRestaurant(_ context.Context, id int64) error {
	if _, ok := m.restaurants[id]; !ok {
		return ErrRestaurantNotFound
	}
	delete(m.restaurants, id)
	for mid, item := range m.menu {
		if item.RestaurantID == id {
			delete(m.menu, mid)
		}
	}
	return nil
}

func (m *mockRepo) ListMenu(_ context.Context, restaurantID int64) ([]MenuItem, error) {
	var out []MenuItem
	for _, item := range m.menu {
		if item.RestaurantID == restaurantID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockRepo) GetMenuItem(_ context.Context, id int64) (*MenuItem, error) {
	item, ok := m.menu[id]
	if !ok {
		return nil, ErrMenuItemNotFound
	}
	return item, nil
}

func (m *mockRepo) CreateMenuItem(_ context.Context, item *MenuItem) error {
	if _, ok := m.restaurants[item.RestaurantID]; !ok {
		return ErrRestaurantNotFound
	}
	m.nextID++
	item.ID = m.nextID
	cp := *item
	m.menu[item.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateMenuItem(_ context.Context, id int64, upd MenuUpdate) (*MenuItem, error) {
	item, ok := m.menu[id]
	if !ok {
		return nil, ErrMenuItemNotFound
	}
	if upd.Name != nil {
		item.Name = *upd.Name
	}
	if upd.Price != nil {
		item.Price = *upd.Price
	}
	if upd.Stock != nil {
		item.Stock = *upd.Stock
	}
	return item, nil
}

func (m *mockRepo) DeleteMenuItem(_ context.Context, id int64) error {
	delete(m.menu, id)
	return nil
}

// --- Tests ---

func TestService_CreateRestaurant_RequiresName(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.CreateRestaurant(context.Background(), &Restaurant{Name: "  "})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)
}

func TestService_MenuIncludesOutOfStock(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	r := &Restaurant{Name: "Curry House"}
	require.NoError(t, svc.CreateRestaurant(ctx, r))
	require.NoError(t, svc.CreateMenuItem(ctx, &MenuItem{
		RestaurantID: r.ID, Name: "Dal", Price: decimal.NewFromInt(120), Stock: 0,
	}))
	require.NoError(t, svc.CreateMenuItem(ctx, &MenuItem{
		RestaurantID: r.ID, Name: "Naan", Price: decimal.NewFromInt(40), Stock: 10,
	}))

	items, err := svc.Menu(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestService_MenuItem(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	r := &Restaurant{Name: "Curry House"}
	require.NoError(t, svc.CreateRestaurant(ctx, r))
	dal := &MenuItem{RestaurantID: r.ID, Name: "Dal", Price: decimal.NewFromInt(120)}
	require.NoError(t, svc.CreateMenuItem(ctx, dal))

	got, err := svc.MenuItem(ctx, dal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dal", got.Name)
	assert.False(t, got.InStock())

	_, err = svc.MenuItem(ctx, 404)
	require.ErrorIs(t, err, ErrMenuItemNotFound)
}

func TestService_MenuUnknownRestaurant(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Menu(context.Background(), 42)
	require.ErrorIs(t, err, ErrRestaurantNotFound)
}

func TestService_CreateMenuItem_Validation(t *testing.T) {
	tests := []struct {
		name  string
		item  MenuItem
		field string
	}{
		{name: "empty name", item: MenuItem{Price: decimal.NewFromInt(1)}, field: "name"},
		{name: "negative price", item: MenuItem{Name: "x", Price: decimal.NewFromInt(-1)}, field: "price"},
		{name: "negative stock", item: MenuItem{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}, field: "stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMockRepo())
			item := tt.item

			err := svc.CreateMenuItem(context.Background(), &item)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestService_UpdateMenuItem_RejectsNegativeStock(t *testing.T) {
	svc := NewService(newMockRepo())
	stock := -3

	_, err := svc.UpdateMenuItem(context.Background(), 1, MenuUpdate{Stock: &stock})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "stock", vErr.Field)
}

func TestService_DeleteRestaurantCascades(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	r := &Restaurant{Name: "Taco Town"}
	require.NoError(t, svc.CreateRestaurant(ctx, r))
	require.NoError(t, svc.CreateMenuItem(ctx, &MenuItem{
		RestaurantID: r.ID, Name: "Taco", Price: decimal.NewFromInt(90), Stock: 5,
	}))

	require.NoError(t, svc.DeleteRestaurant(ctx, r.ID))
	assert.Empty(t, repo.menu)
}
