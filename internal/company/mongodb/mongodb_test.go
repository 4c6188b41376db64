package mongodb

import (
	"strings"
	"testing"
	"time"

	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterDocument(t *testing.T) {
	tests := []struct {
		name string
		spec filter.Spec
		want bson.M
	}{
		{
			name: "empty",
			spec: filter.New(),
			want: bson.M{},
		},
		{
			name: "sentinels are ignored",
			spec: filter.New(filter.WithIndustry(filter.AllIndustries), filter.WithCountry(filter.AllLocations)),
			want: bson.M{},
		},
		{
			name: "search escapes regex metacharacters",
			spec: filter.New(filter.WithSearch("C++ (beta)")),
			want: bson.M{"$or": bson.A{
				bson.M{"name": primitive.Regex{Pattern: `C\+\+ \(beta\)`, Options: "i"}},
				bson.M{"description": primitive.Regex{Pattern: `C\+\+ \(beta\)`, Options: "i"}},
			}},
		},
		{
			name: "equality and range",
			spec: filter.New(
				filter.WithIndustry("Technology"),
				filter.WithCountry("Germany"),
				filter.WithMinEmployees(10),
				filter.WithMaxEmployees(500),
			),
			want: bson.M{
				"industry":  "Technology",
				"country":   "Germany",
				"employees": bson.M{"$gte": 10, "$lte": 500},
			},
		},
		{
			name: "lower bound only",
			spec: filter.New(filter.WithMinEmployees(1000)),
			want: bson.M{"employees": bson.M{"$gte": 1000}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterDocument(tt.spec))
		})
	}
}

func TestUpdateDocument(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := updateDocument(&models.CompanyUpdate{}, now)
	assert.Equal(t, bson.M{"$set": bson.M{"updatedAt": now}}, got)

	got = updateDocument(&models.CompanyUpdate{
		Name:        utils.Ptr("Renamed"),
		Employees:   utils.Ptr(42),
		Description: utils.Ptr(""),
		LogoURL:     utils.Ptr("https://example.com/logo.png"),
	}, now)
	assert.Equal(t, bson.M{
		"$set": bson.M{
			"updatedAt": now,
			"name":      "Renamed",
			"employees": 42,
			"logoUrl":   "https://example.com/logo.png",
		},
		"$unset": bson.M{"description": ""},
	}, got)
}

func TestDocumentRoundTrip(t *testing.T) {
	now := models.Timestamp()
	company := models.NewCompany("", &models.CompanyInput{
		Name:      "FinanceFlow",
		Industry:  "Finance",
		Country:   "United Kingdom",
		City:      "London",
		Employees: 320,
	}, now)

	doc := toDocument(company)
	doc.ID = primitive.NewObjectID()

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded document
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got := decoded.toModel()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	assert.Nil(t, got.Description)
	assert.True(t, now.Equal(got.CreatedAt))

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "description")
	assert.NotContains(t, fields, "logoUrl")
}

func TestParseObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	hex := oid.Hex()

	parsed, ok := parseObjectID(hex)
	require.True(t, ok)
	assert.Equal(t, oid, parsed)

	for _, id := range []string{"AABBCCDDEEFF001122334455", "{" + hex + "}", hex[:23], "nonexistent-id", ""} {
		_, ok := parseObjectID(id)
		assert.False(t, ok, "parse %q", id)
	}

	if upper := strings.ToUpper(hex); upper != hex {
		_, ok := parseObjectID(upper)
		assert.False(t, ok, "parse %q", upper)
	}
}
