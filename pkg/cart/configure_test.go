package cart

import (
	"testing"

	"github.com/example/hottubshop/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configurable() models.Product {
	return models.Product{
		ID:        "p1",
		NameDe:    "Fjordbad",
		NameEn:    "Fjord tub",
		BasePrice: decimal.NewFromInt(100),
		Options: []models.Option{
			{ID: "c1", GroupName: "Abdeckung", NameDe: "Basis", PriceDelta: decimal.NewFromInt(10), IsRequiredGroup: true},
			{ID: "c2", GroupName: "abdeckung", NameDe: "Premium", PriceDelta: decimal.NewFromInt(20), IsRequiredGroup: true},
			{ID: "s1", GroupName: "Treppe", NameDe: "Holz", PriceDelta: decimal.NewFromInt(5)},
		},
	}
}

func TestConfigureBuildsSnapshotInProductOrder(t *testing.T) {
	it, err := Configure(configurable(), []string{"s1", "c1", "unknown"}, "en")
	require.NoError(t, err)

	assert.Equal(t, "Fjord tub", it.ProductName)
	require.Len(t, it.SelectedOptions, 2)
	assert.Equal(t, "c1", it.SelectedOptions[0].ID)
	assert.Equal(t, "s1", it.SelectedOptions[1].ID)
	assert.True(t, it.Total().Equal(decimal.NewFromInt(115)))
}

func TestConfigureRequiresRequiredGroups(t *testing.T) {
	_, err := Configure(configurable(), []string{"s1"}, "de")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidationFailed)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "Abdeckung")
}

func TestConfigureRejectsTwoChoicesInOneGroup(t *testing.T) {
	_, err := Configure(configurable(), []string{"c1", "c2"}, "de")
	assert.ErrorIs(t, err, models.ErrValidationFailed)
}

func TestConfigureWithoutOptions(t *testing.T) {
	p := configurable()
	p.Options = nil

	it, err := Configure(p, nil, "de")
	require.NoError(t, err)
	assert.NotNil(t, it.SelectedOptions)
	assert.True(t, it.Total().Equal(decimal.NewFromInt(100)))
}
