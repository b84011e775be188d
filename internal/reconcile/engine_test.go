package reconcile

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// fakeLedger is an in-memory Ledger with the same contract as the MySQL
// repository: Adjust errors on a missing key, UpsertAdd creates it.
type fakeLedger struct {
	items map[model.ItemKey]*model.Item
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{items: map[model.ItemKey]*model.Item{}}
}

func (f *fakeLedger) Adjust(_ context.Context, key model.ItemKey, delta decimal.Decimal, updatedBy string) (model.Item, error) {
	it, ok := f.items[key]
	if !ok {
		return model.Item{}, repository.ErrNotFound
	}
	it.Quantity = model.Round1(it.Quantity.Add(delta))
	it.LastUpdatedBy = updatedBy
	return *it, nil
}

func (f *fakeLedger) UpsertAdd(_ context.Context, key model.ItemKey, delta decimal.Decimal, category, updatedBy string) (model.Item, error) {
	if it, ok := f.items[key]; ok {
		it.Quantity = model.Round1(it.Quantity.Add(delta))
		it.LastUpdatedBy = updatedBy
		return *it, nil
	}
	it := &model.Item{
		Name: key.Name, Size: key.Size, Length: key.Length,
		Quantity: model.Round1(delta), Category: category, LastUpdatedBy: updatedBy,
	}
	f.items[key] = it
	return *it, nil
}

func (f *fakeLedger) quantity(t *testing.T, name, size, length string) decimal.Decimal {
	t.Helper()
	it, ok := f.items[model.NormalizeKey(name, size, length)]
	require.True(t, ok, "item %s/%s/%s should exist", name, size, length)
	return it.Quantity
}

func (f *fakeLedger) seed(name, size, length string, qty float64) {
	key := model.NormalizeKey(name, size, length)
	f.items[key] = &model.Item{
		Name: key.Name, Size: key.Size, Length: key.Length,
		Quantity: decimal.NewFromFloat(qty),
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func item(name, size, length string, qty float64, role model.Role) model.EventItem {
	return model.EventItem{
		Name: name, Size: size, Length: length,
		Quantity: decimal.NewFromFloat(qty), Role: role,
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestApply_ReceiveCreatesItem(t *testing.T) {
	ledger := newFakeLedger()
	e := New(ledger, quietLogger())

	items := []model.EventItem{item("Pipe", "100mm", "", 10, model.RoleProduct)}
	res, err := e.Apply(context.Background(), items, model.EventReceive, Forward, "tester")
	require.NoError(t, err)

	assert.Len(t, res.Applied, 1)
	assert.Empty(t, res.Missing)
	assert.True(t, ledger.quantity(t, "Pipe", "100mm", "-").Equal(dec(t, "10")))
}

func TestApply_ShipSubtracts(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed("Pipe", "100mm", "-", 10)
	e := New(ledger, quietLogger())

	items := []model.EventItem{item("Pipe", "100mm", "", 3, model.RoleProduct)}
	_, err := e.Apply(context.Background(), items, model.EventShip, Forward, "tester")
	require.NoError(t, err)

	assert.True(t, ledger.quantity(t, "Pipe", "100mm", "-").Equal(dec(t, "7")))
}

func TestApply_ProduceAddsProductConsumesMaterial(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed("Steel", "-", "-", 20)
	e := New(ledger, quietLogger())

	items := []model.EventItem{
		item("Widget", "", "", 5, model.RoleProduct),
		item("Steel", "", "", 2, model.RoleMaterial),
	}
	_, err := e.Apply(context.Background(), items, model.EventProduce, Forward, "tester")
	require.NoError(t, err)

	assert.True(t, ledger.quantity(t, "Widget", "-", "-").Equal(dec(t, "5")))
	assert.True(t, ledger.quantity(t, "Steel", "-", "-").Equal(dec(t, "18")))
}

func TestApply_RollbackRestoresBalances(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed("Steel", "-", "-", 20)
	ledger.seed("Widget", "-", "-", 3.5)
	e := New(ledger, quietLogger())
	ctx := context.Background()

	items := []model.EventItem{
		item("Widget", "", "", 5, model.RoleProduct),
		item("Steel", "", "", 2.5, model.RoleMaterial),
	}
	_, err := e.Apply(ctx, items, model.EventProduce, Forward, "tester")
	require.NoError(t, err)
	_, err = e.Apply(ctx, items, model.EventProduce, Rollback, "tester")
	require.NoError(t, err)

	assert.True(t, ledger.quantity(t, "Widget", "-", "-").Equal(dec(t, "3.5")))
	assert.True(t, ledger.quantity(t, "Steel", "-", "-").Equal(dec(t, "20")))
}

// Updating an event must produce the same balances as deleting it and
// creating a fresh one with the new items.
func TestApply_UpdateEqualsDeletePlusCreate(t *testing.T) {
	ctx := context.Background()
	oldItems := []model.EventItem{item("Pipe", "100mm", "", 10, model.RoleProduct)}
	newItems := []model.EventItem{item("Pipe", "100mm", "", 4, model.RoleProduct)}

	updated := newFakeLedger()
	updated.seed("Pipe", "100mm", "-", 50)
	e1 := New(updated, quietLogger())
	_, err := e1.Apply(ctx, oldItems, model.EventReceive, Forward, "t")
	require.NoError(t, err)
	_, err = e1.Apply(ctx, oldItems, model.EventReceive, Rollback, "t")
	require.NoError(t, err)
	_, err = e1.Apply(ctx, newItems, model.EventShip, Forward, "t")
	require.NoError(t, err)

	recreated := newFakeLedger()
	recreated.seed("Pipe", "100mm", "-", 50)
	e2 := New(recreated, quietLogger())
	_, err = e2.Apply(ctx, newItems, model.EventShip, Forward, "t")
	require.NoError(t, err)

	assert.True(t, updated.quantity(t, "Pipe", "100mm", "-").
		Equal(recreated.quantity(t, "Pipe", "100mm", "-")))
}

// Pins the upsert-on-positive / no-op-on-negative-absent policy: a SHIP
// against an unknown key must not create a negative row, and a RECEIVE
// against an unknown key must create one.
func TestApply_NegativeDeltaOnMissingItemIsReportedNoop(t *testing.T) {
	ledger := newFakeLedger()
	e := New(ledger, quietLogger())

	items := []model.EventItem{item("Ghost", "", "", 3, model.RoleProduct)}
	res, err := e.Apply(context.Background(), items, model.EventShip, Forward, "tester")
	require.NoError(t, err)

	assert.Empty(t, res.Applied)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "Ghost", res.Missing[0].Name)
	assert.Empty(t, ledger.items)
}

func TestApply_RollbackAfterOutOfBandDeleteContinues(t *testing.T) {
	ledger := newFakeLedger()
	ledger.seed("Steel", "-", "-", 10)
	e := New(ledger, quietLogger())
	ctx := context.Background()

	items := []model.EventItem{
		item("Widget", "", "", 5, model.RoleProduct),
		item("Steel", "", "", 2, model.RoleMaterial),
	}
	_, err := e.Apply(ctx, items, model.EventProduce, Forward, "t")
	require.NoError(t, err)

	// Widget deleted out-of-band; its rollback delta is negative and must
	// be skipped while the Steel line still reverses.
	delete(ledger.items, model.NormalizeKey("Widget", "", ""))
	res, err := e.Apply(ctx, items, model.EventProduce, Rollback, "t")
	require.NoError(t, err)

	require.Len(t, res.Missing, 1)
	assert.Equal(t, "Widget", res.Missing[0].Name)
	assert.True(t, ledger.quantity(t, "Steel", "-", "-").Equal(dec(t, "10")))
}

func TestApply_ZeroQuantityLinesAreSkipped(t *testing.T) {
	ledger := newFakeLedger()
	e := New(ledger, quietLogger())

	items := []model.EventItem{item("Pipe", "", "", 0, model.RoleProduct)}
	res, err := e.Apply(context.Background(), items, model.EventReceive, Forward, "t")
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Empty(t, ledger.items)
}

// 0.1 + 0.2 class drift must never reach the ledger.
func TestApply_RoundsToOneDecimal(t *testing.T) {
	ledger := newFakeLedger()
	e := New(ledger, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items := []model.EventItem{item("Resin", "", "", 0.1, model.RoleProduct)}
		_, err := e.Apply(ctx, items, model.EventReceive, Forward, "t")
		require.NoError(t, err)
	}
	assert.Equal(t, "0.3", ledger.quantity(t, "Resin", "-", "-").String())
}

func TestApply_AlertsOnThresholdCrossing(t *testing.T) {
	ledger := newFakeLedger()
	key := model.NormalizeKey("Pipe", "100mm", "")
	ledger.items[key] = &model.Item{
		Name: key.Name, Size: key.Size, Length: key.Length,
		Quantity:       decimal.NewFromInt(12),
		AlertEnabled:   true,
		AlertThreshold: decimal.NewFromInt(10),
	}
	e := New(ledger, quietLogger())

	items := []model.EventItem{item("Pipe", "100mm", "", 3, model.RoleProduct)}
	res, err := e.Apply(context.Background(), items, model.EventShip, Forward, "t")
	require.NoError(t, err)

	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "Pipe", res.Alerts[0].Name)
}

func TestApply_NewItemCategoryFollowsEventType(t *testing.T) {
	ledger := newFakeLedger()
	e := New(ledger, quietLogger())
	ctx := context.Background()

	_, err := e.Apply(ctx, []model.EventItem{item("Widget", "", "", 1, model.RoleProduct)},
		model.EventProduce, Forward, "t")
	require.NoError(t, err)
	_, err = e.Apply(ctx, []model.EventItem{item("Bolt", "", "", 1, model.RoleProduct)},
		model.EventReceive, Forward, "t")
	require.NoError(t, err)

	assert.Equal(t, "생산품", ledger.items[model.NormalizeKey("Widget", "", "")].Category)
	assert.Equal(t, "자재", ledger.items[model.NormalizeKey("Bolt", "", "")].Category)
}
