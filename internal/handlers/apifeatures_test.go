package handlers

import (
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSplitFilterKey(t *testing.T) {
	field, op := splitFilterKey("price[gte]")
	if field != "price" || op != "gte" {
		t.Fatalf("expected (price, gte), got (%s, %s)", field, op)
	}

	field, op = splitFilterKey("title")
	if field != "title" || op != "" {
		t.Fatalf("expected (title, ), got (%s, %s)", field, op)
	}
}

func TestBuildFilterRangeOperators(t *testing.T) {
	values := url.Values{
		"price[gte]": {"10"},
		"price[lte]": {"100"},
	}
	filter := buildFilter(values, nil)

	rangeFilter, ok := filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected range filter for price, got %v", filter["price"])
	}
	if rangeFilter["$gte"] != 10.0 || rangeFilter["$lte"] != 100.0 {
		t.Fatalf("unexpected range bounds: %v", rangeFilter)
	}
}

func TestBuildFilterSkipsReservedParams(t *testing.T) {
	values := url.Values{
		"page":    {"2"},
		"limit":   {"10"},
		"sort":    {"-price"},
		"fields":  {"title"},
		"keyword": {"phone"},
		"sold":    {"5"},
	}
	filter := buildFilter(values, nil)

	if len(filter) != 1 {
		t.Fatalf("expected only sold to survive, got %v", filter)
	}
	if filter["sold"] != 5.0 {
		t.Fatalf("expected sold=5, got %v", filter["sold"])
	}
}

func TestBuildFilterAppliesAliases(t *testing.T) {
	id := primitive.NewObjectID()
	values := url.Values{"subCategory": {id.Hex()}}

	filter := buildFilter(values, map[string]string{"subCategory": "subCategories"})

	got, ok := filter["subCategories"].(primitive.ObjectID)
	if !ok || got != id {
		t.Fatalf("expected aliased ObjectID filter, got %v", filter)
	}
}

func TestFilterValueTyping(t *testing.T) {
	if _, ok := filterValue(primitive.NewObjectID().Hex()).(primitive.ObjectID); !ok {
		t.Fatal("expected hex string to decode as ObjectID")
	}
	if v := filterValue("3.5"); v != 3.5 {
		t.Fatalf("expected float 3.5, got %v", v)
	}
	if v := filterValue("true"); v != true {
		t.Fatalf("expected bool true, got %v", v)
	}
	if v := filterValue("phones"); v != "phones" {
		t.Fatalf("expected plain string, got %v", v)
	}
}

func TestBuildSortDefault(t *testing.T) {
	sort := buildSort("")
	if len(sort) != 1 || sort[0].Key != "createdAt" || sort[0].Value != -1 {
		t.Fatalf("expected default -createdAt sort, got %v", sort)
	}
}

func TestBuildSortMixedDirections(t *testing.T) {
	sort := buildSort("-price, title")
	if len(sort) != 2 {
		t.Fatalf("expected two sort keys, got %v", sort)
	}
	if sort[0].Key != "price" || sort[0].Value != -1 {
		t.Fatalf("expected -price first, got %v", sort[0])
	}
	if sort[1].Key != "title" || sort[1].Value != 1 {
		t.Fatalf("expected ascending title second, got %v", sort[1])
	}
}

func TestBuildProjectionDefaultExcludesVersionField(t *testing.T) {
	projection := buildProjection("")
	if projection["__v"] != 0 || len(projection) != 1 {
		t.Fatalf("expected {__v: 0}, got %v", projection)
	}
}

func TestBuildProjectionSelection(t *testing.T) {
	projection := buildProjection("title, price")
	if projection["title"] != 1 || projection["price"] != 1 || len(projection) != 2 {
		t.Fatalf("expected inclusion projection, got %v", projection)
	}
}

func TestParsePaginationParamsDefaults(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page != 1 || limit != defaultListLimit {
		t.Fatalf("expected defaults (1, %d), got (%d, %d)", defaultListLimit, page, limit)
	}
}

func TestParsePaginationParamsRejectsInvalid(t *testing.T) {
	for _, bad := range []string{"0", "-1", "abc"} {
		if _, _, err := parsePaginationParams(bad, ""); err == nil {
			t.Fatalf("expected error for page=%q", bad)
		}
		if _, _, err := parsePaginationParams("", bad); err == nil {
			t.Fatalf("expected error for limit=%q", bad)
		}
	}
}

func TestPaginationMeta(t *testing.T) {
	meta := paginationMeta(95, 2, 10)

	if meta["currentPage"] != int64(2) || meta["limit"] != int64(10) {
		t.Fatalf("unexpected meta: %v", meta)
	}
	if meta["numberOfPages"] != int64(10) {
		t.Fatalf("expected 10 pages for 95 docs at limit 10, got %v", meta["numberOfPages"])
	}
	if meta["next"] != int64(3) || meta["previous"] != int64(1) {
		t.Fatalf("expected next=3 previous=1, got %v", meta)
	}
}

func TestPaginationMetaEdges(t *testing.T) {
	first := paginationMeta(30, 1, 10)
	if _, ok := first["previous"]; ok {
		t.Fatal("first page must not have a previous page")
	}

	last := paginationMeta(30, 3, 10)
	if _, ok := last["next"]; ok {
		t.Fatal("last page must not have a next page")
	}

	empty := paginationMeta(0, 1, 10)
	if empty["numberOfPages"] != int64(0) {
		t.Fatalf("expected 0 pages for empty result, got %v", empty["numberOfPages"])
	}
}
